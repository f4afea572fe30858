package service

import (
	"time"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

// Event types emitted by steps and resets
const (
	EventStep            = "step"
	EventObstacle        = "obstacle"
	EventCharge          = "charge"
	EventPickup          = "pickup"
	EventDropoff         = "dropoff"
	EventBatteryDepleted = "battery_depleted"
	EventReset           = "reset"
)

// Stop reason codes reported by BulkStep
const (
	StopDelivered       = "delivered"
	StopBatteryDepleted = "battery_depleted"
	StopEpisodeDone     = "episode_done"
	StopInvalidAction   = "invalid_action"
	StopCancelled       = "cancelled"
)

// SessionInfo provides information about a hosted session
type SessionInfo struct {
	ID             string            `json:"id"`
	ConfigName     string            `json:"config_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	State          *engine.Snapshot  `json:"state"`
	Config         *engine.EnvConfig `json:"config"`
}

// StepResult contains the result of a single step
type StepResult struct {
	Action         string             `json:"action"`
	Observation    engine.Observation `json:"observation"`
	Reward         float64            `json:"reward"`
	Done           bool               `json:"done"`
	DistanceToGoal float64            `json:"distance_to_goal"`
	Outcome        engine.Outcome     `json:"outcome"`
	State          *engine.Snapshot   `json:"state"`
	Events         []GameEvent        `json:"events,omitempty"`
	Step           *StepInfo          `json:"step,omitempty"`
	LocalView3x3   []string           `json:"local_view_3x3,omitempty"`
}

// BulkStepResult contains the result of a sequence of steps
type BulkStepResult struct {
	// Summary
	StepsExecuted  int              `json:"steps_executed"`
	RequestedSteps int              `json:"requested_steps"`
	Success        bool             `json:"success"`
	State          *engine.Snapshot `json:"state"`
	Events         []GameEvent      `json:"events"`
	StoppedReason  string           `json:"stopped_reason,omitempty"`
	StopReasonCode string           `json:"stop_reason_code,omitempty"` // delivered|battery_depleted|episode_done|invalid_action|cancelled
	StoppedOnStep  int              `json:"stopped_on_step,omitempty"`  // 1-based index of the action that caused the stop
	Truncated      bool             `json:"truncated,omitempty"`
	Limit          int              `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos     engine.Position `json:"start_pos"`
	EndPos       engine.Position `json:"end_pos"`
	StartBattery float64         `json:"start_battery"`
	EndBattery   float64         `json:"end_battery"`
	RewardDelta  float64         `json:"reward_delta"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	Done         bool     `json:"done"`
	LocalView3x3 []string `json:"local_view_3x3,omitempty"`
	BatteryRisk  string   `json:"battery_risk,omitempty"`
}

// StepInfo is a compact record for each executed step
type StepInfo struct {
	Idx           int             `json:"idx"`
	Action        string          `json:"action"`
	From          engine.Position `json:"from"`
	To            engine.Position `json:"to"`
	Outcome       engine.Outcome  `json:"outcome"`
	Reward        float64         `json:"reward"`
	BatteryBefore float64         `json:"battery_before"`
	BatteryAfter  float64         `json:"battery_after"`
	Done          bool            `json:"done,omitempty"`
}

// GameEvent represents something that happened during an episode
type GameEvent struct {
	Type      string          `json:"type"` // "step", "obstacle", "charge", "pickup", "dropoff", "battery_depleted", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position"`
}

// ConfigInfo provides information about an episode configuration
type ConfigInfo struct {
	Filename      string  `json:"filename"`
	ConfigID      string  `json:"config_id"` // The identifier to use for session creation
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	GridSize      int     `json:"grid_size"`
	MaxBattery    float64 `json:"max_battery"`
	ObstacleCount int     `json:"obstacle_count"`
	ChargerCount  int     `json:"charger_count"`
}
