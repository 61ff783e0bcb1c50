package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/checkpoint"
	"github.com/mpelaunch/mpelaunch/internal/launch"
	"github.com/mpelaunch/mpelaunch/internal/ledger"
	"github.com/mpelaunch/mpelaunch/internal/scenario"
)

// defaultAgents is used for render when the scenario is not in the registry
// and --num-agents is not given.
const defaultAgents = 3

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a trained policy",
		Long: `Run the framework's MPE render entry point against a saved checkpoint.
Scenario and algorithm are passed through without validation. The model
directory defaults to checkpoints/<scenario>/<algorithm>/models under the
configured checkpoint root.

Examples:
  mpelaunch render
  mpelaunch render --scenario simple_reference --algorithm ippo
  mpelaunch render --model-dir /data/run3/models --episodes 10 --no-gifs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			a, err := newApp(cmd, !dryRun)
			if err != nil {
				return err
			}
			defer a.Close()

			render := a.cfg.Render
			if cmd.Flags().Changed("experiment") {
				render.Experiment, _ = cmd.Flags().GetString("experiment")
			}
			if cmd.Flags().Changed("seed") {
				render.Seed, _ = cmd.Flags().GetInt("seed")
			}
			if cmd.Flags().Changed("episodes") {
				render.RenderEpisodes, _ = cmd.Flags().GetInt("episodes")
			}
			if noGifs, _ := cmd.Flags().GetBool("no-gifs"); noGifs {
				render.SaveGifs = false
			}
			if extra, _ := cmd.Flags().GetStringArray("extra"); len(extra) > 0 {
				render.ExtraArgs = append(append([]string(nil), render.ExtraArgs...), extra...)
			}

			plan := launch.RenderPlan{RenderConfig: render}
			plan.Scenario, _ = cmd.Flags().GetString("scenario")
			plan.Algorithm, _ = cmd.Flags().GetString("algorithm")
			plan.NumAgents, _ = cmd.Flags().GetInt("num-agents")
			plan.NumLandmarks, _ = cmd.Flags().GetInt("num-landmarks")

			known, ok := scenario.Lookup(plan.Scenario)
			if plan.NumAgents == 0 {
				plan.NumAgents = defaultAgents
				if ok {
					plan.NumAgents = known.NumAgents()
				}
			}
			if plan.NumLandmarks == 0 {
				plan.NumLandmarks = 3
				if ok {
					plan.NumLandmarks = known.NumLandmarks()
				}
			}
			if !ok {
				a.logger.Debug("scenario not in registry, passing through", "scenario", plan.Scenario)
			}

			plan.ModelDir, _ = cmd.Flags().GetString("model-dir")
			if plan.ModelDir == "" {
				plan.ModelDir = checkpoint.ModelDir(render.CheckpointRoot, plan.Scenario, plan.Algorithm)
			}
			if err := checkpoint.Validate(plan.ModelDir, render.AllowedModelRoots); err != nil {
				return fmt.Errorf("invalid model dir: %w", err)
			}
			if !checkpoint.Exists(plan.ModelDir) {
				a.logger.Warn("model dir does not exist yet", "model_dir", checkpoint.Redact(plan.ModelDir))
			}

			env, err := a.childEnv()
			if err != nil {
				return err
			}
			launches := []launch.Launch{{
				Seed:    render.Seed,
				Command: launch.NewCommand(a.cfg.Framework, a.cfg.Framework.RenderEntry, plan.Args(), env),
			}}

			if dryRun {
				return a.printPlan(cmd, launches)
			}

			return a.execute(cmd, runMeta{
				kind:       ledger.KindRender,
				scenario:   plan.Scenario,
				algorithm:  plan.Algorithm,
				experiment: render.Experiment,
			}, launches, launch.SweepOptions{Parallel: 1})
		},
	}

	cmd.Flags().String("scenario", scenario.SimpleSpread.Name, "Scenario name (not validated)")
	cmd.Flags().String("algorithm", string(scenario.RMAPPO), "Algorithm name (not validated)")
	cmd.Flags().Int("num-agents", 0, "Agent count (default derived from the scenario)")
	cmd.Flags().Int("num-landmarks", 0, "Landmark count (default derived from the scenario)")
	cmd.Flags().String("model-dir", "", "Checkpoint directory (default <checkpoint_root>/<scenario>/<algorithm>/models)")
	cmd.Flags().String("experiment", "", "Experiment name (default from config, \"check\")")
	cmd.Flags().Int("seed", 0, "Seed (default from config, 1)")
	cmd.Flags().Int("episodes", 0, "Number of episodes to render (default from config, 5)")
	cmd.Flags().Bool("no-gifs", false, "Do not save GIFs")
	cmd.Flags().Bool("dry-run", false, "Print the command line instead of running it")
	cmd.Flags().StringArray("extra", nil, "Extra argument appended verbatim to the framework flags (repeatable)")

	return cmd
}
