package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func containsAny(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestFile_ValidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "city.json", `{
		"name": "City",
		"grid_size": 6,
		"max_battery": 10,
		"battery_decrement": 0.5,
		"obstacle_count": 4,
		"charger_count": 2
	}`)

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got errors: %v", result.Errors)
	}
	if result.File != "city.json" {
		t.Errorf("Expected file name city.json, got %s", result.File)
	}
	if !containsAny(result.Info, "ID: city (name: City)") {
		t.Errorf("Expected ID info, got %v", result.Info)
	}
	if !containsAny(result.Info, "Grid: 6x6, 9/36 cells reserved") {
		t.Errorf("Expected grid info, got %v", result.Info)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
}

func TestFile_ValidYAMLUsesFileNameAsName(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tiny.yaml", "grid_size: 4\nobstacle_count: 2\ncharger_count: 1\n")

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid config, got errors: %v", result.Errors)
	}
	if !containsAny(result.Info, "ID: tiny (name: tiny)") {
		t.Errorf("Expected file name to be used as name, got %v", result.Info)
	}
}

func TestFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected string
	}{
		{
			name:     "malformed json",
			file:     "bad.json",
			content:  `{"name": "bad", invalid}`,
			expected: "Invalid document",
		},
		{
			name:     "malformed yaml",
			file:     "bad.yaml",
			content:  "grid_size: [",
			expected: "Invalid document",
		},
		{
			name:     "grid out of range",
			file:     "huge.json",
			content:  `{"grid_size": 1000}`,
			expected: "grid_size must be between",
		},
		{
			name:     "negative battery",
			file:     "neg.json",
			content:  `{"max_battery": -5}`,
			expected: "max_battery must be in",
		},
		{
			name:     "too many reserved cells",
			file:     "crowded.json",
			content:  `{"grid_size": 3, "obstacle_count": 5, "charger_count": 2}`,
			expected: engine.ErrGridTooSmall.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			result := File(path)
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			if !containsAny(result.Errors, tt.expected) {
				t.Errorf("Expected error containing %q, got %v", tt.expected, result.Errors)
			}
			if len(result.Info) != 0 {
				t.Errorf("Expected no info for invalid config, got %v", result.Info)
			}
		})
	}
}

func TestFile_MissingFile(t *testing.T) {
	result := File(filepath.Join(t.TempDir(), "nope.json"))
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !containsAny(result.Errors, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestFile_Warnings(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "short battery without stations",
			content:  `{"grid_size": 5, "max_battery": 2, "battery_decrement": 0.5, "obstacle_count": 1, "charger_count": 0}`,
			expected: []string{"Battery covers 4 steps but the longest trip needs 16", "No charging stations"},
		},
		{
			name:     "unrewarded delivery",
			content:  `{"grid_size": 5, "obstacle_count": 1, "charger_count": 1, "rewards": {"dropoff": 0}}`,
			expected: []string{"Dropoff reward 0"},
		},
		{
			name:     "obstacle pays more than a step",
			content:  `{"grid_size": 5, "obstacle_count": 1, "charger_count": 1, "rewards": {"obstacle": 1, "dropoff": 20}}`,
			expected: []string{"Obstacle reward 1 is higher"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "warn.json", tt.content)

			result := File(path)
			if !result.Valid {
				t.Fatalf("Warnings should not invalidate, got errors: %v", result.Errors)
			}
			for _, w := range tt.expected {
				if !containsAny(result.Warnings, w) {
					t.Errorf("Expected warning %q, got %v", w, result.Warnings)
				}
			}
		})
	}
}

func TestTripBudget(t *testing.T) {
	config := engine.DefaultConfig()
	budget, worst := tripBudget(config)
	if budget != 1000 {
		t.Errorf("Expected 1000 steps for the classic battery, got %d", budget)
	}
	if worst != 36 {
		t.Errorf("Expected worst trip 36 on a 10x10 grid, got %d", worst)
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"grid_size": 5, "obstacle_count": 1, "charger_count": 1}`)
	writeFile(t, dir, "b.yml", "grid_size: 2\nobstacle_count: 3\n")
	writeFile(t, dir, "notes.txt", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}

	results, err := Dir(dir)
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].File != "a.json" || !results[0].Valid {
		t.Errorf("Expected a.json to be valid, got %+v", results[0])
	}
	if results[1].File != "b.yml" || results[1].Valid {
		t.Errorf("Expected b.yml to be invalid, got %+v", results[1])
	}
}

func TestDir_Missing(t *testing.T) {
	if _, err := Dir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestDir_ShippedConfigs(t *testing.T) {
	results, err := Dir("../configs")
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected shipped configs")
	}
	for _, r := range results {
		if !r.Valid {
			t.Errorf("Shipped config %s is invalid: %v", r.File, r.Errors)
		}
	}
}

func TestReport(t *testing.T) {
	results := []Result{
		{File: "ok.json", Valid: true, Info: []string{"✓ Grid: 5x5"}, Warnings: []string{"careful"}},
		{File: "bad.json", Valid: false, Errors: []string{"broken"}},
	}

	var buf bytes.Buffer
	if Report(&buf, results) {
		t.Error("Expected report to fail with an invalid config")
	}

	out := buf.String()
	for _, s := range []string{"ok.json", "✅ VALID", "✓ Grid: 5x5", "⚠ careful", "❌ INVALID", "❌ broken", "Some configurations have errors"} {
		if !strings.Contains(out, s) {
			t.Errorf("Expected %q in report:\n%s", s, out)
		}
	}

	buf.Reset()
	if !Report(&buf, results[:1]) {
		t.Error("Expected report to pass")
	}
	if !strings.Contains(buf.String(), "All configurations are valid") {
		t.Errorf("Expected success footer, got:\n%s", buf.String())
	}

	buf.Reset()
	if !Report(&buf, nil) {
		t.Error("Expected empty report to pass")
	}
	if !strings.Contains(buf.String(), "No configuration files found") {
		t.Errorf("Expected empty footer, got:\n%s", buf.String())
	}
}
