// Package validate checks episode configuration files in a directory. For
// each JSON or YAML file it checks:
//   - the document decodes onto the default configuration
//   - ranges and grid capacity (engine.ValidateConfig)
//   - the battery budget against the longest possible trip (warning only)
//   - reward ordering: delivery should pay and obstacles should not (warning only)
package validate

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Result captures the outcome of validating a single file. Info is only
// filled for valid files.
type Result struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// File loads and validates a single configuration file.
func File(path string) Result {
	result := Result{
		File:  filepath.Base(path),
		Valid: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	ext := filepath.Ext(path)
	config, err := engine.DecodeConfig(data, ext)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid document: %v", err))
		return result
	}

	id := strings.TrimSuffix(filepath.Base(path), ext)
	if config.Name == "" {
		config.Name = id
	}

	if err := engine.ValidateConfig(config); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	budget, worst := tripBudget(config)
	if budget < worst {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Battery covers %d steps but the longest trip needs %d; some layouts need a charging stop", budget, worst))
	}
	if budget < worst && config.ChargerCount == 0 {
		result.Warnings = append(result.Warnings, "No charging stations to extend a short battery")
	}
	if config.Rewards.Dropoff <= 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Dropoff reward %g does not reward delivery", config.Rewards.Dropoff))
	}
	if config.Rewards.Obstacle > config.Rewards.Default {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Obstacle reward %g is higher than the default step reward %g", config.Rewards.Obstacle, config.Rewards.Default))
	}

	cells := config.GridSize * config.GridSize
	result.Info = append(result.Info,
		fmt.Sprintf("✓ ID: %s (name: %s)", id, config.Name),
		fmt.Sprintf("✓ Grid: %dx%d, %d/%d cells reserved", config.GridSize, config.GridSize, config.ReservedCells(), cells),
		fmt.Sprintf("✓ Obstacles: %d", config.ObstacleCount),
		fmt.Sprintf("✓ Stations: %d", config.ChargerCount),
		fmt.Sprintf("✓ Battery: %g (-%g per step, %d steps)", config.MaxBattery, config.BatteryDecrement, budget),
		fmt.Sprintf("✓ Rewards: obstacle %g, charge %g, pickup %g, dropoff %g, default %g",
			config.Rewards.Obstacle, config.Rewards.Charge, config.Rewards.Pickup, config.Rewards.Dropoff, config.Rewards.Default),
	)

	return result
}

// tripBudget returns how many steps a full battery allows and the longest
// car -> passenger -> destination trip on the grid in Manhattan steps.
func tripBudget(config *engine.EnvConfig) (budget, worst int) {
	budget = int(math.Floor(config.MaxBattery/config.BatteryDecrement + engine.BatteryEpsilon))
	worst = 4 * (config.GridSize - 1)
	return budget, worst
}

// Dir validates every configuration file in dir, sorted by file name.
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !slices.Contains(extensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			continue
		}
		results = append(results, File(filepath.Join(dir, entry.Name())))
	}

	return results, nil
}

// Report prints a concise report for results and returns true when every
// file is valid.
func Report(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠ "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No configuration files found")
	case allValid:
		fmt.Fprintln(w, "✅ All configurations are valid!")
	default:
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}

	return allValid
}
