package engine

import (
	"fmt"
	"slices"
)

// Step applies one action and advances the episode.
//
// The transition runs in a fixed order: drain the battery, move and clamp the
// car, count the step, evaluate the first matching reward rule, accumulate
// the reward, test for exhaustion, then recompute the distance to the goal.
func (e *Environment) Step(action Action) (StepResult, error) {
	if !action.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(action))
	}
	if e.status == StatusTerminated {
		return StepResult{}, ErrEpisodeDone
	}

	e.battery -= e.config.BatteryDecrement

	e.car = e.clamp(e.car.Add(action.Delta()))
	e.stepsTaken++

	outcome := e.evaluate()
	reward := e.config.Rewards.For(outcome)
	e.totalReward += reward
	e.lastOutcome = outcome

	done := outcome == OutcomeDropoff
	depleted := false
	if e.battery <= BatteryEpsilon {
		e.battery = 0
		depleted = true
		done = true
	}

	e.updateDistanceToGoal()

	if done {
		e.status = StatusTerminated
	}

	return StepResult{
		Observation:    e.observation(),
		Reward:         reward,
		Done:           done,
		DistanceToGoal: e.distanceToGoal,
		Outcome:        outcome,
		Depleted:       depleted,
	}, nil
}

// evaluate fires the first reward rule matching the car's cell
func (e *Environment) evaluate() Outcome {
	if slices.Contains(e.obstacles, e.car) {
		return OutcomeObstacle
	}

	if i := slices.Index(e.chargers, e.car); i >= 0 {
		e.battery = e.config.MaxBattery
		e.chargers = slices.Delete(e.chargers, i, i+1)
		return OutcomeCharge
	}

	if e.car == e.passenger && !e.passengerPicked {
		e.passengerPicked = true
		return OutcomePickup
	}

	if e.car == e.destination && e.passengerPicked {
		e.delivered = true
		return OutcomeDropoff
	}

	return OutcomeNone
}

// clamp pins each coordinate into [0, grid_size-1]
func (e *Environment) clamp(p Position) Position {
	limit := e.config.GridSize - 1
	return Position{
		X: max(0, min(p.X, limit)),
		Y: max(0, min(p.Y, limit)),
	}
}
