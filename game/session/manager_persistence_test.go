package session

import (
	"errors"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	persistence, configManager, _ := newTestPersistence(t)
	manager := NewManagerWithPersistence(persistence)
	classic := configManager.GetDefault()

	t.Run("Create Session Auto-Saves", func(t *testing.T) {
		session, err := manager.Create("auto1", "classic", classic)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if !persistence.Exists(session.ID) {
			t.Error("Session should be auto-saved on creation")
		}

		loaded, err := persistence.Load(session.ID)
		if err != nil {
			t.Fatalf("Failed to load auto-saved session: %v", err)
		}
		if loaded.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loaded.ID)
		}
	})

	t.Run("Get Session Loads from Persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)

		session, err := manager2.Get("AUTO1")
		if err != nil {
			t.Fatalf("Failed to get session from persistence: %v", err)
		}
		if session.ID != "auto1" {
			t.Errorf("Expected ID auto1, got %s", session.ID)
		}
		if manager2.Count() != 1 {
			t.Errorf("Loaded session should be cached in memory, count %d", manager2.Count())
		}
	})

	t.Run("Save Method Persists Changes", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}

		if _, err := session.Env.Step(engine.ActionUp); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		want := session.Env.Snapshot()

		if err := manager.Save("auto1"); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		manager2 := NewManagerWithPersistence(persistence)
		reloaded, err := manager2.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to reload session: %v", err)
		}

		got := reloaded.Env.Snapshot()
		if got.StepsTaken != want.StepsTaken || got.CarPos != want.CarPos || got.Battery != want.Battery {
			t.Errorf("Reloaded snapshot differs: got %+v, want %+v", got, want)
		}
	})

	t.Run("Save Unknown Session", func(t *testing.T) {
		if err := manager.Save("ghost"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete Removes from Persistence", func(t *testing.T) {
		if _, err := manager.Create("delete-me", "classic", classic); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if !persistence.Exists("delete-me") {
			t.Fatal("Session should be persisted before deletion")
		}

		if err := manager.Delete("delete-me"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("delete-me") {
			t.Error("Session file should be removed")
		}
		if _, err := manager.Get("delete-me"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete Persisted-Only Session", func(t *testing.T) {
		if _, err := manager.Create("disk-only", "classic", classic); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		manager2 := NewManagerWithPersistence(persistence)
		if err := manager2.Delete("disk-only"); err != nil {
			t.Fatalf("Failed to delete persisted session: %v", err)
		}
		if persistence.Exists("disk-only") {
			t.Error("Session file should be removed")
		}
	})

	t.Run("Cleanup Keeps Persisted Snapshot", func(t *testing.T) {
		session, err := manager.Create("idle", "classic", classic)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		session.LastAccessedAt = time.Now().Add(-3 * time.Hour)

		if removed := manager.CleanupExpiredSessions(time.Hour); removed < 1 {
			t.Fatalf("Expected idle session to be evicted, removed %d", removed)
		}
		if !persistence.Exists("idle") {
			t.Fatal("Evicted session should remain on disk")
		}

		if _, err := manager.Get("idle"); err != nil {
			t.Errorf("Evicted session should reload from disk: %v", err)
		}
	})

	t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)
		if err := manager2.LoadPersistedSessions(); err != nil {
			t.Fatalf("Failed to load persisted sessions: %v", err)
		}

		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list persisted sessions: %v", err)
		}
		if manager2.Count() != len(ids) {
			t.Errorf("Expected %d sessions in memory, got %d", len(ids), manager2.Count())
		}
	})

	t.Run("SaveAllSessions Writes Every Session", func(t *testing.T) {
		session, err := manager.Get("auto1")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if _, err := session.Env.Reset(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}

		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("SaveAllSessions failed: %v", err)
		}

		loaded, err := persistence.Load("auto1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Env.StepsTaken() != 0 {
			t.Errorf("Expected reset episode on disk, got %d steps", loaded.Env.StepsTaken())
		}
	})
}
