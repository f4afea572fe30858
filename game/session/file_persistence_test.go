package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/evtaxi/game/config"
	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/service"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager, string) {
	t.Helper()

	tempDir := t.TempDir()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(tempDir, configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	return persistence, configManager, tempDir
}

func newPersistableSession(t *testing.T, id, configID string, cfg *engine.EnvConfig) *service.Session {
	t.Helper()

	env, err := engine.NewEnvironment(cfg)
	if err != nil {
		t.Fatalf("Failed to create environment: %v", err)
	}

	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		ConfigID:       configID,
		Env:            env,
		Config:         cfg,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)
	classic, err := configManager.LoadConfig("classic")
	if err != nil {
		t.Fatalf("Failed to load classic config: %v", err)
	}

	t.Run("Save and Load Session", func(t *testing.T) {
		session := newPersistableSession(t, "test1", "classic", classic)

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		if !persistence.Exists("test1") {
			t.Fatal("Session file should exist after save")
		}
		if _, err := os.Stat(filepath.Join(tempDir, "test1.json.tmp")); !os.IsNotExist(err) {
			t.Error("Temporary file should not be left behind")
		}

		loaded, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
		if loaded.ConfigID != "classic" {
			t.Errorf("Expected config ID classic, got %s", loaded.ConfigID)
		}
		if !loaded.CreatedAt.Equal(session.CreatedAt) {
			t.Errorf("Expected CreatedAt %v, got %v", session.CreatedAt, loaded.CreatedAt)
		}

		original := session.Env.Snapshot()
		restored := loaded.Env.Snapshot()
		if restored.CarPos != original.CarPos || restored.PassengerPos != original.PassengerPos ||
			restored.DestinationPos != original.DestinationPos {
			t.Errorf("Layout not restored: got %+v, want %+v", restored, original)
		}
		if len(restored.Obstacles) != len(original.Obstacles) || len(restored.Chargers) != len(original.Chargers) {
			t.Errorf("Obstacles/chargers not restored: got %d/%d, want %d/%d",
				len(restored.Obstacles), len(restored.Chargers), len(original.Obstacles), len(original.Chargers))
		}
	})

	t.Run("Save State Changes", func(t *testing.T) {
		session := newPersistableSession(t, "progress", "classic", classic)

		if _, err := session.Env.Step(engine.ActionDown); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if _, err := session.Env.Step(engine.ActionRight); err != nil {
			t.Fatalf("Step failed: %v", err)
		}

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("progress")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		want := session.Env.Snapshot()
		got := loaded.Env.Snapshot()
		if got.StepsTaken != 2 {
			t.Errorf("Expected 2 steps, got %d", got.StepsTaken)
		}
		if got.CarPos != want.CarPos {
			t.Errorf("Expected car at %+v, got %+v", want.CarPos, got.CarPos)
		}
		if got.Battery != want.Battery {
			t.Errorf("Expected battery %v, got %v", want.Battery, got.Battery)
		}
		if got.TotalReward != want.TotalReward {
			t.Errorf("Expected reward %v, got %v", want.TotalReward, got.TotalReward)
		}
		if got.DistanceToGoal != want.DistanceToGoal {
			t.Errorf("Expected distance %v, got %v", want.DistanceToGoal, got.DistanceToGoal)
		}
	})

	t.Run("Terminated Episode Stays Terminated", func(t *testing.T) {
		session := newPersistableSession(t, "finished", "classic", classic)

		snap := session.Env.Snapshot()
		snap.Status = engine.StatusTerminated
		snap.Delivered = true
		if err := session.Env.Restore(snap); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("finished")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if !loaded.Env.IsDone() {
			t.Error("Expected restored episode to be done")
		}
		if _, err := loaded.Env.Step(engine.ActionUp); !errors.Is(err, engine.ErrEpisodeDone) {
			t.Errorf("Expected ErrEpisodeDone, got %v", err)
		}
	})

	t.Run("Empty Config ID Uses Default", func(t *testing.T) {
		session := newPersistableSession(t, "nocfg", "", configManager.GetDefault())
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := persistence.Load("nocfg")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Config != configManager.GetDefault() {
			t.Error("Expected default config for session without config ID")
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		found := make(map[string]bool)
		for _, id := range ids {
			found[id] = true
		}
		for _, id := range []string{"test1", "progress", "finished", "nocfg"} {
			if !found[id] {
				t.Errorf("Session %s not found in list", id)
			}
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test1"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test1") {
			t.Error("Session should not exist after deletion")
		}
		if err := persistence.Delete("test1"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Error Cases", func(t *testing.T) {
		if _, err := persistence.Load("nonexistent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}

		if err := persistence.Save(nil); err == nil {
			t.Error("Expected error when saving nil session")
		}

		if err := os.WriteFile(filepath.Join(tempDir, "corrupt.json"), []byte("{"), 0644); err != nil {
			t.Fatalf("Failed to write corrupt file: %v", err)
		}
		if _, err := persistence.Load("corrupt"); err == nil {
			t.Error("Expected error loading corrupt session file")
		}

		session := newPersistableSession(t, "orphan", "missing-config", classic)
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if _, err := persistence.Load("orphan"); !errors.Is(err, service.ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestFilePersistenceFileStructure(t *testing.T) {
	persistence, configManager, tempDir := newTestPersistence(t)

	session := newPersistableSession(t, "structure", "classic", configManager.GetDefault())
	if _, err := session.Env.Step(engine.ActionLeft); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(tempDir, "structure.json"))
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}

	for _, key := range []string{"id", "config_name", "created_at", "last_accessed_at", "snapshot"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("Missing top-level key %q", key)
		}
	}

	snapshot, ok := doc["snapshot"].(map[string]any)
	if !ok {
		t.Fatal("snapshot should be an object")
	}
	for _, key := range []string{"car_pos", "passenger_pos", "destination_pos", "obstacles", "chargers", "battery", "steps_taken", "status"} {
		if _, ok := snapshot[key]; !ok {
			t.Errorf("Missing snapshot key %q", key)
		}
	}
	if snapshot["steps_taken"] != float64(1) {
		t.Errorf("Expected steps_taken 1, got %v", snapshot["steps_taken"])
	}
}
