package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/launch"
	"github.com/mpelaunch/mpelaunch/internal/ledger"
	"github.com/mpelaunch/mpelaunch/internal/ratelimit"
	"github.com/mpelaunch/mpelaunch/internal/scenario"
)

func trainUsage() string {
	return fmt.Sprintf("Usage: mpelaunch train <scenario_name> <algorithm_name>\n"+
		"  scenario_name:  %s\n"+
		"  algorithm_name: %s\n",
		strings.Join(scenario.Names(), " | "),
		strings.Join(scenario.AlgorithmNames(), " | "))
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <scenario_name> <algorithm_name>",
		Short: "Train a scenario with IPPO or RMAPPO",
		Long: `Validate the scenario and algorithm, then run the framework's MPE training
entry point with the configured hyperparameters. The launcher exits with the
training process's exit code.

Scenarios and agent counts:
  simple_reference  2 agents
  simple_spread     3 agents

Examples:
  mpelaunch train simple_spread rmappo
  mpelaunch train simple_reference ippo --experiment baseline --seed 3
  mpelaunch train simple_spread ippo --seed-max 5 --parallel 2
  mpelaunch train simple_spread ippo --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &UsageError{
					Err:   fmt.Errorf("expected 2 arguments, got %d", len(args)),
					Usage: trainUsage(),
				}
			}
			sc, err := scenario.ParseScenario(args[0])
			if err != nil {
				return &UsageError{Err: err, Usage: trainUsage()}
			}
			algo, err := scenario.ParseAlgorithm(args[1])
			if err != nil {
				return &UsageError{Err: err, Usage: trainUsage()}
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			a, err := newApp(cmd, !dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			train := a.cfg.Train
			if cmd.Flags().Changed("experiment") {
				train.Experiment, _ = cmd.Flags().GetString("experiment")
			}
			if cmd.Flags().Changed("seed") {
				train.Seed, _ = cmd.Flags().GetInt("seed")
			}
			if extra, _ := cmd.Flags().GetStringArray("extra"); len(extra) > 0 {
				train.ExtraArgs = append(append([]string(nil), train.ExtraArgs...), extra...)
			}

			seedMax, _ := cmd.Flags().GetInt("seed-max")
			if seedMax == 0 {
				seedMax = train.Seed
			}
			if seedMax < train.Seed {
				return &UsageError{
					Err:   fmt.Errorf("--seed-max %d is below --seed %d", seedMax, train.Seed),
					Usage: trainUsage(),
				}
			}
			parallel, _ := cmd.Flags().GetInt("parallel")
			stagger, _ := cmd.Flags().GetDuration("stagger")

			env, err := a.childEnv()
			if err != nil {
				return err
			}

			launches := make([]launch.Launch, 0, seedMax-train.Seed+1)
			for seed := train.Seed; seed <= seedMax; seed++ {
				plan := launch.TrainPlan{Scenario: sc, Algorithm: algo, TrainConfig: train}
				plan.Seed = seed
				launches = append(launches, launch.Launch{
					Seed:    seed,
					Command: launch.NewCommand(a.cfg.Framework, a.cfg.Framework.TrainEntry, plan.Args(), env),
				})
			}

			if dryRun {
				return a.printPlan(cmd, launches)
			}

			return a.execute(cmd, runMeta{
				kind:       ledger.KindTrain,
				scenario:   sc.Name,
				algorithm:  string(algo),
				experiment: train.Experiment,
			}, launches, launch.SweepOptions{
				Parallel: parallel,
				Pacer:    pacer(stagger),
			})
		},
	}

	cmd.Flags().String("experiment", "", "Experiment name (default from config, \"check\")")
	cmd.Flags().Int("seed", 0, "Seed (default from config, 1)")
	cmd.Flags().Int("seed-max", 0, "Run every seed from --seed to this value")
	cmd.Flags().Int("parallel", 1, "Maximum concurrent training processes in a seed sweep")
	cmd.Flags().Duration("stagger", 0, "Minimum delay between process starts in a seed sweep (e.g. 30s)")
	cmd.Flags().Bool("dry-run", false, "Print the command line instead of running it")
	cmd.Flags().StringArray("extra", nil, "Extra argument appended verbatim to the framework flags (repeatable)")

	return cmd
}

// pacer returns a start limiter for --stagger, or nil when it is unset.
func pacer(stagger time.Duration) launch.Pacer {
	if l := ratelimit.Every(stagger); l != nil {
		return l
	}
	return nil
}
