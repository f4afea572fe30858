package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// GameService defines all episode-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Episode Operations
	Step(ctx context.Context, sessionID, action string, reset bool) (*StepResult, error)
	BulkStep(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkStepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error)

	// Episode State
	GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	Render(ctx context.Context, sessionID string, styled bool) (string, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.EnvConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.EnvConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.EnvConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles episode configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.EnvConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.EnvConfig
	DefaultID() string
	SaveConfig(name string, config *engine.EnvConfig) error
}

// Session represents a hosted episode
type Session struct {
	ID             string
	ConfigID       string
	Env            *engine.Environment
	Config         *engine.EnvConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
