// Command analyze plays headless episodes for every configuration in a
// directory and prints how each layout behaves under a simple driver: success
// rate, pickup rate, and mean ± stddev of reward and episode length.
//
//	go run ./cmd/analyze --config-dir configs --episodes 200 --policy greedy
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wricardo/mcp-training/evtaxi/game/config"
	"github.com/wricardo/mcp-training/evtaxi/game/engine"
)

// Policy picks the next action for a snapshot
type Policy func(s engine.Snapshot, rng *rand.Rand) engine.Action

var policies = map[string]Policy{
	"random": randomPolicy,
	"greedy": greedyPolicy,
}

func randomPolicy(_ engine.Snapshot, rng *rand.Rand) engine.Action {
	return engine.Action(rng.Intn(engine.NumActions))
}

// greedyPolicy closes the larger axis gap to the current target: the
// passenger until pickup, then the destination. Ties break randomly.
func greedyPolicy(s engine.Snapshot, rng *rand.Rand) engine.Action {
	target := s.PassengerPos
	if s.PassengerPicked {
		target = s.DestinationPos
	}

	dx := target.X - s.CarPos.X
	dy := target.Y - s.CarPos.Y
	if dx == 0 && dy == 0 {
		return randomPolicy(s, rng)
	}

	horizontal := abs(dx) > abs(dy) || (abs(dx) == abs(dy) && rng.Intn(2) == 0)
	switch {
	case horizontal && dx > 0:
		return engine.ActionRight
	case horizontal:
		return engine.ActionLeft
	case dy > 0:
		return engine.ActionDown
	default:
		return engine.ActionUp
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// EpisodeStats records one finished episode
type EpisodeStats struct {
	Reward    float64
	Steps     int
	PickedUp  bool
	Delivered bool
	Charges   int
	Obstacles int
}

// Summary aggregates episodes of one configuration
type Summary struct {
	Config      string
	Episodes    int
	SuccessRate float64
	PickupRate  float64
	RewardMean  float64
	RewardStd   float64
	RewardMin   float64
	RewardMax   float64
	StepsMean   float64
	StepsStd    float64
	Charges     float64
	Obstacles   float64
}

// runEpisode resets env and drives it with policy until the episode ends or
// maxSteps is reached (0 means no cap).
func runEpisode(env *engine.Environment, policy Policy, rng *rand.Rand, maxSteps int) (EpisodeStats, error) {
	var stats EpisodeStats
	if _, err := env.Reset(); err != nil {
		return stats, err
	}

	for maxSteps == 0 || stats.Steps < maxSteps {
		res, err := env.Step(policy(env.Snapshot(), rng))
		if err != nil {
			return stats, err
		}
		stats.Steps++

		switch res.Outcome {
		case engine.OutcomeCharge:
			stats.Charges++
		case engine.OutcomeObstacle:
			stats.Obstacles++
		}

		if res.Done {
			break
		}
	}

	snap := env.Snapshot()
	stats.Reward = snap.TotalReward
	stats.PickedUp = snap.PassengerPicked
	stats.Delivered = snap.Delivered
	return stats, nil
}

// analyze plays episodes on cfg. The layout and the policy draw from
// separate sources both derived from seed.
func analyze(cfg *engine.EnvConfig, policy Policy, episodes int, seed int64, maxSteps int) (Summary, error) {
	summary := Summary{Config: cfg.Name, Episodes: episodes}
	if episodes <= 0 {
		return summary, fmt.Errorf("episodes must be positive, got %d", episodes)
	}

	env, err := engine.NewEnvironment(cfg, engine.WithRand(rand.New(rand.NewSource(seed))))
	if err != nil {
		return summary, err
	}
	defer env.Close()

	rng := rand.New(rand.NewSource(seed + 1))

	rewards := make([]float64, 0, episodes)
	steps := make([]float64, 0, episodes)
	var delivered, picked, charges, obstacles int

	for i := 0; i < episodes; i++ {
		ep, err := runEpisode(env, policy, rng, maxSteps)
		if err != nil {
			return summary, fmt.Errorf("episode %d: %w", i+1, err)
		}

		rewards = append(rewards, ep.Reward)
		steps = append(steps, float64(ep.Steps))
		charges += ep.Charges
		obstacles += ep.Obstacles
		if ep.Delivered {
			delivered++
		}
		if ep.PickedUp {
			picked++
		}
	}

	n := float64(episodes)
	summary.SuccessRate = float64(delivered) / n
	summary.PickupRate = float64(picked) / n
	summary.RewardMean, summary.RewardStd = stat.MeanStdDev(rewards, nil)
	summary.StepsMean, summary.StepsStd = stat.MeanStdDev(steps, nil)
	summary.RewardMin = floats.Min(rewards)
	summary.RewardMax = floats.Max(rewards)
	summary.Charges = float64(charges) / n
	summary.Obstacles = float64(obstacles) / n

	return summary, nil
}

func printSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n=== %s (%d episodes) ===\n", s.Config, s.Episodes)
	fmt.Fprintf(w, "Delivered:  %5.1f%%\n", s.SuccessRate*100)
	fmt.Fprintf(w, "Picked up:  %5.1f%%\n", s.PickupRate*100)
	fmt.Fprintf(w, "Reward:     %.2f ± %.2f (min %.2f, max %.2f)\n", s.RewardMean, s.RewardStd, s.RewardMin, s.RewardMax)
	fmt.Fprintf(w, "Steps:      %.1f ± %.1f\n", s.StepsMean, s.StepsStd)
	fmt.Fprintf(w, "Per episode: %.2f charges, %.2f obstacle hits\n", s.Charges, s.Obstacles)
	if s.SuccessRate == 0 {
		fmt.Fprintln(w, "⚠️  No episode was delivered")
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	policy, ok := policies[cmd.String("policy")]
	if !ok {
		return fmt.Errorf("unknown policy %q (use random or greedy)", cmd.String("policy"))
	}

	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	ids := cmd.StringSlice("config")
	if len(ids) == 0 {
		infos, err := manager.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			ids = append(ids, info.ConfigID)
		}
	}

	out := cmd.Root().Writer
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg, err := manager.LoadConfig(id)
		if err != nil {
			log.Warn("skipping config", "config", id, "err", err)
			continue
		}

		log.Debug("analyzing", "config", id, "episodes", cmd.Int("episodes"))
		summary, err := analyze(cfg, policy, cmd.Int("episodes"), cmd.Int64("seed"), cmd.Int("max-steps"))
		if err != nil {
			return fmt.Errorf("config %s: %w", id, err)
		}
		printSummary(out, summary)
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Play headless episodes per configuration and report statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "Directory containing episode configurations",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringSliceFlag{
				Name:  "config",
				Usage: "Config IDs to analyze (default: all)",
			},
			&cli.IntFlag{
				Name:  "episodes",
				Value: 100,
				Usage: "Episodes per configuration",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "Seed for layouts and the driver",
			},
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "Cap on steps per episode (0 = until the episode ends)",
			},
			&cli.StringFlag{
				Name:  "policy",
				Value: "random",
				Usage: "Driver policy: random or greedy",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Action: run,
	}
}

func main() {
	log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "analyze",
	}))

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal("analyze failed", "err", err)
	}
}
