package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"
)

var (
	ErrInvalidAction      = errors.New("invalid action")
	ErrEpisodeDone        = errors.New("episode is done, reset required")
	ErrInvalidConfig      = errors.New("config validation")
	ErrGridTooSmall       = errors.New("grid too small")
	ErrPlacementExhausted = errors.New("random placement exhausted")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
)

// Renderer draws episode snapshots. Implementations must treat the snapshot
// as read-only input.
type Renderer interface {
	Render(snapshot Snapshot) error
	Close() error
}

// Option configures an Environment
type Option func(*Environment)

// WithRenderer attaches a renderer that Render and Close delegate to
func WithRenderer(r Renderer) Option {
	return func(e *Environment) {
		e.renderer = r
	}
}

// WithRand replaces the environment's random source
func WithRand(rng *rand.Rand) Option {
	return func(e *Environment) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// Environment owns the state of one episode at a time. It is not safe for
// concurrent use; callers serialise access.
type Environment struct {
	config   EnvConfig
	rng      *rand.Rand
	renderer Renderer
	closed   bool
	obs      Observation

	car         Position
	passenger   Position
	destination Position
	obstacles   []Position
	chargers    []Position

	battery         float64
	passengerPicked bool
	delivered       bool
	totalReward     float64
	stepsTaken      int
	distanceToGoal  float64
	status          Status
	lastOutcome     Outcome
}

// NewEnvironment validates the configuration and returns an environment
// with a freshly reset episode.
func NewEnvironment(config *EnvConfig, opts ...Option) (*Environment, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	env := &Environment{
		config: *config,
		rng:    rand.New(rand.NewSource(seed)),
		obs:    NewObservation(config.GridSize, config.CellSize),
	}
	for _, opt := range opts {
		opt(env)
	}

	if _, err := env.Reset(); err != nil {
		return nil, err
	}

	return env, nil
}

// Config returns a copy of the environment configuration
func (e *Environment) Config() EnvConfig {
	return e.config
}

// Reset reinitialises every per-episode field and returns the initial
// observation. On error the previous episode is left untouched.
func (e *Environment) Reset() (Observation, error) {
	if e.config.ReservedCells() > e.config.GridSize*e.config.GridSize {
		return Observation{}, fmt.Errorf("%w: need %d cells on a %dx%d grid",
			ErrGridTooSmall, e.config.ReservedCells(), e.config.GridSize, e.config.GridSize)
	}

	car := e.randomPosition()
	taken := make([]Position, 0, e.config.ReservedCells())
	taken = append(taken, car)

	passenger, err := e.sampleFree(taken)
	if err != nil {
		return Observation{}, fmt.Errorf("placing passenger: %w", err)
	}
	taken = append(taken, passenger)

	destination, err := e.sampleFree(taken)
	if err != nil {
		return Observation{}, fmt.Errorf("placing destination: %w", err)
	}
	taken = append(taken, destination)

	obstacles := make([]Position, 0, e.config.ObstacleCount)
	for i := 0; i < e.config.ObstacleCount; i++ {
		pos, err := e.sampleFree(taken)
		if err != nil {
			return Observation{}, fmt.Errorf("placing obstacle %d: %w", i+1, err)
		}
		obstacles = append(obstacles, pos)
		taken = append(taken, pos)
	}

	chargers := make([]Position, 0, e.config.ChargerCount)
	for i := 0; i < e.config.ChargerCount; i++ {
		pos, err := e.sampleFree(taken)
		if err != nil {
			return Observation{}, fmt.Errorf("placing charger %d: %w", i+1, err)
		}
		chargers = append(chargers, pos)
		taken = append(taken, pos)
	}

	e.car = car
	e.passenger = passenger
	e.destination = destination
	e.obstacles = obstacles
	e.chargers = chargers
	e.battery = e.config.MaxBattery
	e.passengerPicked = false
	e.delivered = false
	e.totalReward = 0
	e.stepsTaken = 0
	e.status = StatusActive
	e.lastOutcome = ""
	e.updateDistanceToGoal()

	return e.observation(), nil
}

// Status returns the episode lifecycle state
func (e *Environment) Status() Status {
	return e.status
}

// IsDone reports whether the last step terminated the episode
func (e *Environment) IsDone() bool {
	return e.status == StatusTerminated
}

// Battery returns the current battery level
func (e *Environment) Battery() float64 {
	return e.battery
}

// CarPosition returns the current car position
func (e *Environment) CarPosition() Position {
	return e.car
}

// PassengerPicked reports whether the passenger is on board
func (e *Environment) PassengerPicked() bool {
	return e.passengerPicked
}

// TotalReward returns the sum of step rewards since the last reset
func (e *Environment) TotalReward() float64 {
	return e.totalReward
}

// StepsTaken returns the number of steps since the last reset
func (e *Environment) StepsTaken() int {
	return e.stepsTaken
}

// DistanceToGoal returns the Euclidean distance from the car to the destination
func (e *Environment) DistanceToGoal() float64 {
	return e.distanceToGoal
}

// Snapshot returns a deep copy of the current episode state
func (e *Environment) Snapshot() Snapshot {
	s := Snapshot{
		ConfigName:      e.config.Name,
		GridSize:        e.config.GridSize,
		CarPos:          e.car,
		PassengerPos:    e.passenger,
		DestinationPos:  e.destination,
		Obstacles:       slices.Clone(e.obstacles),
		Chargers:        slices.Clone(e.chargers),
		Battery:         e.battery,
		MaxBattery:      e.config.MaxBattery,
		PassengerPicked: e.passengerPicked,
		Delivered:       e.delivered,
		TotalReward:     e.totalReward,
		StepsTaken:      e.stepsTaken,
		DistanceToGoal:  e.distanceToGoal,
		Status:          e.status,
		LastOutcome:     e.lastOutcome,
	}
	s.BatteryRisk = AnalyzeBatteryRisk(s, e.config.BatteryDecrement)
	return s
}

// Restore replaces the episode state with a snapshot (used by persistence
// loading and scenario tests). The snapshot must match the grid size.
func (e *Environment) Restore(s Snapshot) error {
	if s.GridSize != e.config.GridSize {
		return fmt.Errorf("%w: grid_size %d does not match config grid_size %d",
			ErrInvalidSnapshot, s.GridSize, e.config.GridSize)
	}

	positions := []Position{s.CarPos, s.PassengerPos, s.DestinationPos}
	positions = append(positions, s.Obstacles...)
	positions = append(positions, s.Chargers...)
	for _, p := range positions {
		if !p.InBounds(e.config.GridSize) {
			return fmt.Errorf("%w: position (%d,%d) is out of bounds", ErrInvalidSnapshot, p.X, p.Y)
		}
	}

	if s.Battery < 0 || s.Battery > e.config.MaxBattery {
		return fmt.Errorf("%w: battery %g outside [0, %g]", ErrInvalidSnapshot, s.Battery, e.config.MaxBattery)
	}
	if s.StepsTaken < 0 {
		return fmt.Errorf("%w: steps_taken cannot be negative", ErrInvalidSnapshot)
	}

	status := s.Status
	switch status {
	case StatusActive, StatusTerminated:
	case "":
		status = StatusActive
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSnapshot, s.Status)
	}

	e.car = s.CarPos
	e.passenger = s.PassengerPos
	e.destination = s.DestinationPos
	e.obstacles = slices.Clone(s.Obstacles)
	e.chargers = slices.Clone(s.Chargers)
	e.battery = s.Battery
	e.passengerPicked = s.PassengerPicked
	e.delivered = s.Delivered
	e.totalReward = s.TotalReward
	e.stepsTaken = s.StepsTaken
	e.status = status
	e.lastOutcome = s.LastOutcome
	e.updateDistanceToGoal()

	return nil
}

// Render hands a snapshot to the attached renderer, if any
func (e *Environment) Render() error {
	if e.renderer == nil || e.closed {
		return nil
	}
	return e.renderer.Render(e.Snapshot())
}

// Close releases the renderer. Calling Close more than once is a no-op.
func (e *Environment) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.renderer == nil {
		return nil
	}
	return e.renderer.Close()
}

func (e *Environment) observation() Observation {
	return e.obs
}

func (e *Environment) updateDistanceToGoal() {
	e.distanceToGoal = Distance(e.car, e.destination)
}
