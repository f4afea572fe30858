// Package engine provides the simulation core for the EV taxi grid world.
//
// The engine package implements the episode state machine:
//   - Episode initialisation with bounded random placement
//   - The per-step transition function and reward model
//   - Battery drain, single-use charging stations and termination
//   - Configuration loading and validation
//
// Core Types:
//
// Environment owns every per-episode field and exposes Reset and Step.
// EnvConfig holds the grid size, battery parameters, entity counts and reward
// table. Snapshot is a deep copy of the episode state handed to renderers and
// persistence layers; it can be restored into an Environment.
//
// Usage:
//
//	env, err := engine.NewEnvironment(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	obs, _ := env.Reset()
//	res, err := env.Step(engine.ActionRight)
//	if res.Done {
//		// episode finished
//	}
//
// Episode Rules:
//
// The car drains battery on every step. Driving onto an obstacle costs a
// penalty, driving onto a charging station refills the battery once per
// station, reaching the passenger picks them up, and reaching the destination
// with the passenger on board ends the episode in success. Running the battery
// down to zero ends the episode in failure.
package engine
