// Package launch builds the framework's command lines and runs them as child
// processes, passing the child's exit status back to the caller.
package launch

import (
	"strconv"

	"github.com/mpelaunch/mpelaunch/internal/config"
	"github.com/mpelaunch/mpelaunch/internal/sanitize"
	"github.com/mpelaunch/mpelaunch/internal/scenario"
)

// EnvName is the framework environment family every launch targets.
const EnvName = "MPE"

// TrainPlan is one training run: a validated scenario and algorithm plus the
// hyperparameters to forward. The embedded TrainConfig's Seed is the run's seed.
type TrainPlan struct {
	Scenario  scenario.Scenario
	Algorithm scenario.Algorithm
	config.TrainConfig
}

// Args returns the framework flags for the plan. Hyperparameter values are
// forwarded as-is; only the experiment name is made path-safe.
func (p TrainPlan) Args() []string {
	args := []string{
		"--env_name", EnvName,
		"--scenario_name", p.Scenario.Name,
		"--num_agents", strconv.Itoa(p.Scenario.NumAgents()),
		"--algorithm_name", string(p.Algorithm),
		"--experiment_name", sanitize.ExperimentName(p.Experiment),
		"--num_landmarks", strconv.Itoa(p.Scenario.NumLandmarks()),
		"--seed", strconv.Itoa(p.Seed),
		"--n_training_threads", strconv.Itoa(p.TrainingThreads),
		"--n_rollout_threads", strconv.Itoa(p.RolloutThreads),
		"--num_mini_batch", strconv.Itoa(p.NumMiniBatch),
		"--episode_length", strconv.Itoa(p.EpisodeLength),
		"--num_env_steps", strconv.FormatInt(p.NumEnvSteps, 10),
		"--ppo_epoch", strconv.Itoa(p.PPOEpoch),
	}
	if p.UseReLU {
		args = append(args, "--use_ReLU")
	}
	args = append(args,
		"--gain", formatFloat(p.Gain),
		"--lr", formatFloat(p.LR),
		"--critic_lr", formatFloat(p.CriticLR),
	)
	// The framework's --use_wandb is a store_false switch.
	if !p.UseWandb {
		args = append(args, "--use_wandb")
	}
	if u := sanitize.Label(p.WandbUser); u != "" {
		args = append(args, "--user_name", u)
	}
	if n := sanitize.Label(p.WandbName); n != "" {
		args = append(args, "--wandb_name", n)
	}
	return append(args, p.ExtraArgs...)
}

// RenderPlan is one render/evaluation run. Scenario and algorithm are
// forwarded unvalidated.
type RenderPlan struct {
	Scenario     string
	Algorithm    string
	NumAgents    int
	NumLandmarks int
	ModelDir     string
	config.RenderConfig
}

// Args returns the framework flags for the plan.
func (p RenderPlan) Args() []string {
	var args []string
	if p.SaveGifs {
		args = append(args, "--save_gifs")
	}
	args = append(args,
		"--share_policy",
		"--env_name", EnvName,
		"--algorithm_name", p.Algorithm,
		"--experiment_name", sanitize.ExperimentName(p.Experiment),
		"--scenario_name", p.Scenario,
		"--num_agents", strconv.Itoa(p.NumAgents),
		"--num_landmarks", strconv.Itoa(p.NumLandmarks),
		"--seed", strconv.Itoa(p.Seed),
		"--n_training_threads", "1",
		"--n_rollout_threads", "1",
		"--use_render",
		"--episode_length", strconv.Itoa(p.EpisodeLength),
		"--render_episodes", strconv.Itoa(p.RenderEpisodes),
		"--model_dir", p.ModelDir,
	)
	return append(args, p.ExtraArgs...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
