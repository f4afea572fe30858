package main

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/render"
)

type driveOptions struct {
	Seed     int64
	Delay    time.Duration
	MaxSteps int
	Quiet    bool
	Styled   bool
}

// newEnvironment builds an environment for cfg. A non-zero seed overrides
// the config's seed.
func newEnvironment(cfg *engine.EnvConfig, seed int64, renderer engine.Renderer) (*engine.Environment, error) {
	c := *cfg
	if seed != 0 {
		c.Seed = seed
	}

	var opts []engine.Option
	if renderer != nil {
		opts = append(opts, engine.WithRenderer(renderer))
	}
	return engine.NewEnvironment(&c, opts...)
}

// runDrive plays one episode with a uniformly random driver: reset, render,
// then sample, step and render until the episode ends, MaxSteps is reached
// or ctx is cancelled. It returns the final snapshot.
func runDrive(ctx context.Context, cfg *engine.EnvConfig, w io.Writer, opts driveOptions) (engine.Snapshot, error) {
	var renderer engine.Renderer
	if !opts.Quiet {
		if opts.Styled {
			renderer = render.NewStyledRenderer(w)
		} else {
			renderer = render.NewTextRenderer(w)
		}
	}

	env, err := newEnvironment(cfg, opts.Seed, renderer)
	if err != nil {
		return engine.Snapshot{}, err
	}
	defer env.Close()

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	if err := env.Render(); err != nil {
		return env.Snapshot(), err
	}

	for opts.MaxSteps == 0 || env.StepsTaken() < opts.MaxSteps {
		action := engine.Action(rng.Intn(engine.NumActions))
		res, err := env.Step(action)
		if err != nil {
			return env.Snapshot(), err
		}
		log.Debug("step", "action", action, "outcome", res.Outcome, "reward", res.Reward, "battery", env.Battery())

		if err := env.Render(); err != nil {
			return env.Snapshot(), err
		}
		if res.Done {
			break
		}

		if opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return env.Snapshot(), ctx.Err()
			case <-time.After(opts.Delay):
			}
		}
	}

	snap := env.Snapshot()
	log.Info("episode finished",
		"config", snap.ConfigName,
		"steps", snap.StepsTaken,
		"reward", snap.TotalReward,
		"delivered", snap.Delivered,
		"battery", snap.Battery,
	)
	return snap, nil
}
