package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is an index into the four-move action space
type Action int

const (
	ActionDown  Action = iota // (0, +1)
	ActionUp                  // (0, -1)
	ActionRight               // (+1, 0)
	ActionLeft                // (-1, 0)
)

const (
	NumActions          = 4
	ObservationChannels = 3

	DefaultGridSize             = 10
	DefaultCellSize             = 70
	DefaultMaxBattery           = 100.0
	DefaultBatteryDecrement     = 0.1
	DefaultObstacleCount        = 5
	DefaultChargerCount         = 3
	DefaultMaxPlacementAttempts = 10000

	// Validation constants
	MinGridSize     = 2
	MaxGridSize     = 100
	MaxCellSize     = 128

	// MaxObservationSide bounds grid_size*cell_size, the observation's height and width.
	MaxObservationSide = MaxGridSize * DefaultCellSize

	MaxBatteryLimit = 100.0
	MaxBulkSteps    = 50

	// BatteryEpsilon absorbs float drift in the exhaustion check.
	BatteryEpsilon = 1e-9
)

var actionDeltas = [NumActions]Position{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
}

var actionNames = [NumActions]string{"down", "up", "right", "left"}

// Valid reports whether a is inside the action space
func (a Action) Valid() bool {
	return a >= 0 && int(a) < NumActions
}

// Delta returns the coordinate shift applied by the action
func (a Action) Delta() Position {
	if !a.Valid() {
		return Position{}
	}
	return actionDeltas[a]
}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Actions returns every action in index order
func Actions() []Action {
	return []Action{ActionDown, ActionUp, ActionRight, ActionLeft}
}

// ParseAction accepts either an action index ("0".."3") or a name
// ("down", "up", "right", "left"), case-insensitively.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		a := Action(n)
		if !a.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidAction, n)
		}
		return a, nil
	}
	for i, name := range actionNames {
		if name == s {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Outcome names the reward rule that fired on a step
type Outcome string

const (
	OutcomeNone     Outcome = "none"
	OutcomeObstacle Outcome = "obstacle"
	OutcomeCharge   Outcome = "charge"
	OutcomePickup   Outcome = "pickup"
	OutcomeDropoff  Outcome = "dropoff"
)

// Status is the episode lifecycle state
type Status string

const (
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
)

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p shifted by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// InBounds reports whether p lies on a square grid of the given size
func (p Position) InBounds(gridSize int) bool {
	return p.X >= 0 && p.X < gridSize && p.Y >= 0 && p.Y < gridSize
}

// Rewards is the per-outcome reward table
type Rewards struct {
	Obstacle float64 `json:"obstacle" yaml:"obstacle"`
	Charge   float64 `json:"charge" yaml:"charge"`
	Pickup   float64 `json:"pickup" yaml:"pickup"`
	Dropoff  float64 `json:"dropoff" yaml:"dropoff"`
	Default  float64 `json:"default" yaml:"default"`
}

// For returns the reward paid for an outcome
func (r Rewards) For(o Outcome) float64 {
	switch o {
	case OutcomeObstacle:
		return r.Obstacle
	case OutcomeCharge:
		return r.Charge
	case OutcomePickup:
		return r.Pickup
	case OutcomeDropoff:
		return r.Dropoff
	default:
		return r.Default
	}
}

// EnvConfig represents the episode configuration loaded from JSON or YAML
type EnvConfig struct {
	Name                 string  `json:"name" yaml:"name"`
	Description          string  `json:"description" yaml:"description"`
	GridSize             int     `json:"grid_size" yaml:"grid_size"`
	CellSize             int     `json:"cell_size" yaml:"cell_size"`
	MaxBattery           float64 `json:"max_battery" yaml:"max_battery"`
	BatteryDecrement     float64 `json:"battery_decrement" yaml:"battery_decrement"`
	ObstacleCount        int     `json:"obstacle_count" yaml:"obstacle_count"`
	ChargerCount         int     `json:"charger_count" yaml:"charger_count"`
	Rewards              Rewards `json:"rewards" yaml:"rewards"`
	Seed                 int64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	MaxPlacementAttempts int     `json:"max_placement_attempts,omitempty" yaml:"max_placement_attempts,omitempty"`
}

// ReservedCells is the number of distinct cells a reset must place
func (c *EnvConfig) ReservedCells() int {
	return 3 + c.ObstacleCount + c.ChargerCount
}

// Snapshot is a deep copy of the episode state. Renderers and persistence
// receive snapshots so they can never write back into a live episode.
type Snapshot struct {
	ConfigName      string     `json:"config_name"`
	GridSize        int        `json:"grid_size"`
	CarPos          Position   `json:"car_pos"`
	PassengerPos    Position   `json:"passenger_pos"`
	DestinationPos  Position   `json:"destination_pos"`
	Obstacles       []Position `json:"obstacles"`
	Chargers        []Position `json:"chargers"`
	Battery         float64    `json:"battery"`
	MaxBattery      float64    `json:"max_battery"`
	PassengerPicked bool       `json:"passenger_picked"`
	Delivered       bool       `json:"delivered"`
	TotalReward     float64    `json:"total_reward"`
	StepsTaken      int        `json:"steps_taken"`
	DistanceToGoal  float64    `json:"distance_to_goal"`
	Status          Status     `json:"status"`
	LastOutcome     Outcome    `json:"last_outcome,omitempty"`

	// Computed helper view (not used by the transition function)
	BatteryRisk string `json:"battery_risk,omitempty"`
}

// StepResult is the outcome of a single transition
type StepResult struct {
	Observation    Observation `json:"observation"`
	Reward         float64     `json:"reward"`
	Done           bool        `json:"done"`
	DistanceToGoal float64     `json:"distance_to_goal"`
	Outcome        Outcome     `json:"outcome"`
	Depleted       bool        `json:"depleted"`
}
