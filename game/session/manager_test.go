package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

func createTestConfig() *engine.EnvConfig {
	config := engine.DefaultConfig()
	config.Name = "session-test"
	config.GridSize = 6
	config.ObstacleCount = 3
	config.ChargerCount = 2
	config.Seed = 11
	return config
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test1", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test1" {
			t.Errorf("Expected ID 'test1', got '%s'", session.ID)
		}
		if session.ConfigID != "classic" {
			t.Errorf("Expected config ID 'classic', got '%s'", session.ConfigID)
		}
		if session.Env == nil {
			t.Fatal("Expected environment to be initialized")
		}
		if session.Env.Status() != engine.StatusActive {
			t.Errorf("Expected active episode, got %s", session.Env.Status())
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character ID, got '%s'", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test1", "classic", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST1", "classic", config)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid session ID", func(t *testing.T) {
		for _, id := range []string{"../etc", "has space", "semi;colon"} {
			if _, err := manager.Create(id, "classic", config); !errors.Is(err, ErrInvalidSessionID) {
				t.Errorf("Create(%q): expected ErrInvalidSessionID, got %v", id, err)
			}
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		bad := createTestConfig()
		bad.GridSize = 2
		_, err := manager.Create("bad-config", "classic", bad)
		if !errors.Is(err, engine.ErrGridTooSmall) {
			t.Errorf("Expected ErrGridTooSmall, got %v", err)
		}
		if _, err := manager.Get("bad-config"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Failed create should not register a session")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", "classic", createTestConfig())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the created session")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != "get-test" {
			t.Errorf("Expected ID 'get-test', got '%s'", session.ID)
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("missing")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	t.Run("delete existing session", func(t *testing.T) {
		manager.Create("delete-test", "classic", config)
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		err := manager.Delete("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-delete", "classic", config)
		if err := manager.Delete("CASE-DELETE"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if manager.Count() != 0 {
			t.Errorf("Expected no sessions, got %d", manager.Count())
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	if len(manager.List()) != 0 {
		t.Error("Expected empty list initially")
	}

	ids := []string{"list1", "list2", "list3"}
	for _, id := range ids {
		if _, err := manager.Create(id, "classic", config); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
	}

	sessions := manager.List()
	if len(sessions) != len(ids) {
		t.Fatalf("Expected %d sessions, got %d", len(ids), len(sessions))
	}

	found := make(map[string]bool)
	for _, s := range sessions {
		found[s.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("Session %s not found in list", id)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	active, _ := manager.Create("active", "classic", config)
	expired, _ := manager.Create("expired", "classic", config)

	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}

	if _, err := manager.Get("expired"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()

	session, _ := manager.Create("access-test", "classic", createTestConfig())
	originalTime := session.LastAccessedAt

	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}

	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}

	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	manager := NewManager()
	manager.Create("memory-only", "classic", createTestConfig())

	if err := manager.Save("memory-only"); err != nil {
		t.Errorf("Save without persistence should be a no-op, got %v", err)
	}
	if err := manager.SaveAllSessions(); err != nil {
		t.Errorf("SaveAllSessions without persistence should be a no-op, got %v", err)
	}
	if err := manager.LoadPersistedSessions(); err != nil {
		t.Errorf("LoadPersistedSessions without persistence should be a no-op, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			sessionID := ""
			if id%2 == 0 {
				sessionID = fmt.Sprintf("worker-%d", id)
			}
			session, err := manager.Create(sessionID, "classic", config)
			if err != nil {
				errs <- err
				return
			}
			if _, err := manager.Get(session.ID); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	if manager.Count() != 100 {
		t.Errorf("Expected 100 sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	session1, _ := manager.Create("iso-1", "classic", config)
	session2, _ := manager.Create("iso-2", "classic", config)

	before := session2.Env.Snapshot()

	if _, err := session1.Env.Step(engine.ActionRight); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	after := session2.Env.Snapshot()
	if after.StepsTaken != before.StepsTaken || after.Battery != before.Battery || after.CarPos != before.CarPos {
		t.Error("Session 2 should not be affected by session 1 moves")
	}
	if session1.Env.StepsTaken() != 1 {
		t.Errorf("Expected session 1 to have taken 1 step, got %d", session1.Env.StepsTaken())
	}
}

func TestManager_SessionIDGeneration(t *testing.T) {
	manager := NewManager()
	config := createTestConfig()

	generatedIDs := make(map[string]bool)

	for i := 0; i < 50; i++ {
		session, err := manager.Create("", "classic", config)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}

		if generatedIDs[session.ID] {
			t.Errorf("Duplicate session ID generated: %s", session.ID)
		}
		generatedIDs[session.ID] = true

		if len(session.ID) != 4 || !validSessionID(session.ID) {
			t.Errorf("Expected 4-character hex ID, got %q", session.ID)
		}
	}
}
