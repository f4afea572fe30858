// Package session manages concurrent EV taxi episodes.
//
// Each session owns one engine.Environment plus the ID of the configuration
// it was built from. The Manager keeps sessions in memory behind a RWMutex;
// IDs are matched case-insensitively and, when empty, generated as 4 random
// hex characters.
//
// Persistence:
//
// NewManagerWithPersistence mirrors sessions to a SessionPersistence. The
// FilePersistence implementation stores one JSON document per session holding
// the current engine.Snapshot. Loading rebuilds the environment from the
// stored config ID and restores the snapshot into it, so only the current
// state survives a restart.
//
//	configs, _ := config.NewManager("configs")
//	store, _ := session.NewFilePersistence("sessions", configs)
//	manager := session.NewManagerWithPersistence(store)
//
//	sess, err := manager.Create("", configs.DefaultID(), configs.GetDefault())
//
// CleanupExpiredSessions evicts idle sessions from memory only; a later Get
// reloads them from disk.
package session
