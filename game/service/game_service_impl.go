package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/render"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new session running a fresh episode
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.EnvConfig
	configID := strings.TrimSpace(configName)
	if configID != "" {
		var err error
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configID, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.configs.DefaultID()
	}

	// Let the session manager generate a 4-character ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

// configNotFound wraps err with the list of config IDs that do exist
func (s *gameServiceImpl) configNotFound(configID string, err error) error {
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("config '%s': %w. Use /api/configs to list available configurations", configID, err)
	}

	ids := make([]string, 0, len(available))
	for _, cfg := range available {
		ids = append(ids, cfg.ConfigID)
	}
	return fmt.Errorf("config '%s': %w. Available configs: %v", configID, err, ids)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return sessionInfo(sess), nil
}

// ListSessions returns all hosted sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Step executes a single action for a session
func (s *gameServiceImpl) Step(ctx context.Context, sessionID, action string, reset bool) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	a, err := engine.ParseAction(action)
	if err != nil {
		return nil, err
	}

	events := []GameEvent{}
	if reset {
		if _, err := sess.Env.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset episode: %w", err)
		}
		events = append(events, resetEvent(sess.Env.CarPosition()))
	}

	before := sess.Env.Snapshot()
	res, err := sess.Env.Step(a)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	after := sess.Env.Snapshot()

	events = append(events, stepEvents(a, res, after)...)

	s.persist(sessionID, "step")

	return &StepResult{
		Action:         a.String(),
		Observation:    res.Observation,
		Reward:         res.Reward,
		Done:           res.Done,
		DistanceToGoal: res.DistanceToGoal,
		Outcome:        res.Outcome,
		State:          &after,
		Events:         events,
		Step:           stepInfo(1, a, before, after, res),
		LocalView3x3:   render.LocalView(after),
	}, nil
}

// BulkStep executes up to MaxBulkSteps actions in sequence, stopping early
// when the episode ends, an action cannot be parsed or ctx is cancelled.
// Steps already taken are kept and persisted in every case.
func (s *gameServiceImpl) BulkStep(ctx context.Context, sessionID string, actions []string, reset bool) (*BulkStepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	result := &BulkStepResult{
		RequestedSteps: len(actions),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		if _, err := sess.Env.Reset(); err != nil {
			return nil, fmt.Errorf("failed to reset episode: %w", err)
		}
		result.Events = append(result.Events, resetEvent(sess.Env.CarPosition()))
	}

	start := sess.Env.Snapshot()
	result.StartPos = start.CarPos
	result.StartBattery = start.Battery

	// Limit actions to prevent abuse
	if len(actions) > engine.MaxBulkSteps {
		result.Truncated = true
		result.Limit = engine.MaxBulkSteps
		actions = actions[:engine.MaxBulkSteps]
	}

	for i, raw := range actions {
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("cancelled before step %d: %v", i+1, err)
			result.StopReasonCode = StopCancelled
			result.StoppedOnStep = i + 1
			break
		}

		if sess.Env.IsDone() {
			result.StoppedReason = "episode already finished, reset required"
			result.StopReasonCode = StopEpisodeDone
			result.StoppedOnStep = i + 1
			break
		}

		a, err := engine.ParseAction(raw)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("step %d: %v", i+1, err)
			result.StopReasonCode = StopInvalidAction
			result.StoppedOnStep = i + 1
			break
		}

		before := sess.Env.Snapshot()
		res, err := sess.Env.Step(a)
		if err != nil {
			if result.StepsExecuted > 0 {
				s.persist(sessionID, "bulk step")
			}
			return nil, fmt.Errorf("session %s step %d: %w", sessionID, i+1, err)
		}
		after := sess.Env.Snapshot()

		result.StepsExecuted++
		result.Events = append(result.Events, stepEvents(a, res, after)...)
		result.Steps = append(result.Steps, *stepInfo(i+1, a, before, after, res))

		if res.Done {
			result.StoppedOnStep = i + 1
			if res.Outcome == engine.OutcomeDropoff {
				result.StopReasonCode = StopDelivered
				result.StoppedReason = "passenger delivered"
			} else {
				result.StopReasonCode = StopBatteryDepleted
				result.StoppedReason = "battery depleted"
			}
			break
		}
	}

	end := sess.Env.Snapshot()
	result.State = &end
	result.EndPos = end.CarPos
	result.EndBattery = end.Battery
	result.RewardDelta = end.TotalReward - start.TotalReward
	result.Done = end.Status == engine.StatusTerminated
	result.LocalView3x3 = render.LocalView(end)
	result.BatteryRisk = riskCode(end.BatteryRisk)

	s.persist(sessionID, "bulk step")

	return result, nil
}

// Reset starts a new episode for a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := sess.Env.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset episode: %w", err)
	}

	s.persist(sessionID, "reset")

	snapshot := sess.Env.Snapshot()
	return &snapshot, nil
}

// GetState retrieves the current episode snapshot
func (s *gameServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	snapshot := sess.Env.Snapshot()
	return &snapshot, nil
}

// Render returns the text frame of the current episode
func (s *gameServiceImpl) Render(ctx context.Context, sessionID string, styled bool) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return "", err
	}

	return render.FrameString(sess.Env.Snapshot(), styled), nil
}

// ListConfigs returns available episode configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific episode configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.EnvConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves an episode configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.EnvConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// getSession looks up a session and refreshes its access time
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.Warn("failed to update session access time", "session", sessionID, "err", err)
	}
	return sess, nil
}

// persist saves the session snapshot; failures are logged, not returned
func (s *gameServiceImpl) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn("failed to persist session", "session", sessionID, "after", after, "err", err)
	}
}

func sessionInfo(sess *Session) *SessionInfo {
	snapshot := sess.Env.Snapshot()
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          &snapshot,
		Config:         sess.Config,
	}
}

func stepInfo(idx int, a engine.Action, before, after engine.Snapshot, res engine.StepResult) *StepInfo {
	return &StepInfo{
		Idx:           idx,
		Action:        a.String(),
		From:          before.CarPos,
		To:            after.CarPos,
		Outcome:       res.Outcome,
		Reward:        res.Reward,
		BatteryBefore: before.Battery,
		BatteryAfter:  after.Battery,
		Done:          res.Done,
	}
}

func resetEvent(pos engine.Position) GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Episode reset to a new random layout",
		Timestamp: time.Now(),
		Position:  pos,
	}
}

// stepEvents generates events from a completed step
func stepEvents(a engine.Action, res engine.StepResult, after engine.Snapshot) []GameEvent {
	now := time.Now()
	pos := after.CarPos

	events := []GameEvent{{
		Type:      EventStep,
		Message:   fmt.Sprintf("Moved %s to (%d,%d)", a, pos.X, pos.Y),
		Timestamp: now,
		Position:  pos,
	}}

	switch res.Outcome {
	case engine.OutcomeObstacle:
		events = append(events, GameEvent{
			Type:      EventObstacle,
			Message:   fmt.Sprintf("Drove onto an obstacle at (%d,%d), reward %.0f", pos.X, pos.Y, res.Reward),
			Timestamp: now,
			Position:  pos,
		})
	case engine.OutcomeCharge:
		events = append(events, GameEvent{
			Type:      EventCharge,
			Message:   fmt.Sprintf("Battery charged to %.2f, %d stations left", after.Battery, len(after.Chargers)),
			Timestamp: now,
			Position:  pos,
		})
	case engine.OutcomePickup:
		events = append(events, GameEvent{
			Type:      EventPickup,
			Message:   "Person picked up",
			Timestamp: now,
			Position:  pos,
		})
	case engine.OutcomeDropoff:
		events = append(events, GameEvent{
			Type:      EventDropoff,
			Message:   fmt.Sprintf("Person dropped off after %d steps, total reward %.2f", after.StepsTaken, after.TotalReward),
			Timestamp: now,
			Position:  pos,
		})
	}

	if res.Depleted {
		events = append(events, GameEvent{
			Type:      EventBatteryDepleted,
			Message:   "Battery depleted, episode over",
			Timestamp: now,
			Position:  pos,
		})
	}

	return events
}

func riskCode(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "critical"):
		return "CRITICAL"
	case strings.Contains(t, "danger"):
		return "DANGER"
	case strings.Contains(t, "caution"):
		return "CAUTION"
	case strings.Contains(t, "low"):
		return "LOW"
	case strings.Contains(t, "warning"):
		return "WARNING"
	case strings.Contains(t, "safe"):
		return "SAFE"
	default:
		return "UNKNOWN"
	}
}
