package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Keys lists the dot-notation keys accepted by Get and Set, in display order.
var Keys = []string{
	"framework.repo_dir",
	"framework.python",
	"framework.train_entry",
	"framework.render_entry",
	"framework.work_dir",
	"framework.env_file",
	"framework.cuda_visible_devices",
	"train.experiment",
	"train.seed",
	"train.n_training_threads",
	"train.n_rollout_threads",
	"train.num_mini_batch",
	"train.episode_length",
	"train.num_env_steps",
	"train.ppo_epoch",
	"train.use_relu",
	"train.gain",
	"train.lr",
	"train.critic_lr",
	"train.use_wandb",
	"train.wandb_user",
	"train.wandb_name",
	"render.experiment",
	"render.seed",
	"render.episode_length",
	"render.render_episodes",
	"render.save_gifs",
	"render.checkpoint_root",
	"logging.level",
	"ledger.enabled",
}

// Get returns the value stored under a dot-notation key.
func (c *LaunchConfig) Get(key string) (any, bool) {
	switch key {
	case "framework.repo_dir":
		return c.Framework.RepoDir, true
	case "framework.python":
		return c.Framework.Python, true
	case "framework.train_entry":
		return c.Framework.TrainEntry, true
	case "framework.render_entry":
		return c.Framework.RenderEntry, true
	case "framework.work_dir":
		return c.Framework.WorkDir, true
	case "framework.env_file":
		return c.Framework.EnvFile, true
	case "framework.cuda_visible_devices":
		return c.Framework.CUDAVisibleDevices, true
	case "train.experiment":
		return c.Train.Experiment, true
	case "train.seed":
		return c.Train.Seed, true
	case "train.n_training_threads":
		return c.Train.TrainingThreads, true
	case "train.n_rollout_threads":
		return c.Train.RolloutThreads, true
	case "train.num_mini_batch":
		return c.Train.NumMiniBatch, true
	case "train.episode_length":
		return c.Train.EpisodeLength, true
	case "train.num_env_steps":
		return c.Train.NumEnvSteps, true
	case "train.ppo_epoch":
		return c.Train.PPOEpoch, true
	case "train.use_relu":
		return c.Train.UseReLU, true
	case "train.gain":
		return c.Train.Gain, true
	case "train.lr":
		return c.Train.LR, true
	case "train.critic_lr":
		return c.Train.CriticLR, true
	case "train.use_wandb":
		return c.Train.UseWandb, true
	case "train.wandb_user":
		return c.Train.WandbUser, true
	case "train.wandb_name":
		return c.Train.WandbName, true
	case "render.experiment":
		return c.Render.Experiment, true
	case "render.seed":
		return c.Render.Seed, true
	case "render.episode_length":
		return c.Render.EpisodeLength, true
	case "render.render_episodes":
		return c.Render.RenderEpisodes, true
	case "render.save_gifs":
		return c.Render.SaveGifs, true
	case "render.checkpoint_root":
		return c.Render.CheckpointRoot, true
	case "logging.level":
		return c.Logging.Level, true
	case "ledger.enabled":
		return c.Ledger.Enabled, true
	default:
		return nil, false
	}
}

// Set parses value and stores it under a dot-notation key.
func (c *LaunchConfig) Set(key, value string) error {
	var err error
	switch key {
	case "framework.repo_dir":
		c.Framework.RepoDir = value
	case "framework.python":
		if value == "" {
			return fmt.Errorf("framework.python must not be empty")
		}
		c.Framework.Python = value
	case "framework.train_entry":
		c.Framework.TrainEntry = value
	case "framework.render_entry":
		c.Framework.RenderEntry = value
	case "framework.work_dir":
		c.Framework.WorkDir = value
	case "framework.env_file":
		c.Framework.EnvFile = value
	case "framework.cuda_visible_devices":
		c.Framework.CUDAVisibleDevices = value
	case "train.experiment":
		c.Train.Experiment = value
	case "train.seed":
		err = setInt(&c.Train.Seed, key, value)
	case "train.n_training_threads":
		err = setInt(&c.Train.TrainingThreads, key, value)
	case "train.n_rollout_threads":
		err = setInt(&c.Train.RolloutThreads, key, value)
	case "train.num_mini_batch":
		err = setInt(&c.Train.NumMiniBatch, key, value)
	case "train.episode_length":
		err = setInt(&c.Train.EpisodeLength, key, value)
	case "train.num_env_steps":
		var n int64
		n, err = strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		c.Train.NumEnvSteps = n
	case "train.ppo_epoch":
		err = setInt(&c.Train.PPOEpoch, key, value)
	case "train.use_relu":
		c.Train.UseReLU = parseBool(value)
	case "train.gain":
		err = setFloat(&c.Train.Gain, key, value)
	case "train.lr":
		err = setFloat(&c.Train.LR, key, value)
	case "train.critic_lr":
		err = setFloat(&c.Train.CriticLR, key, value)
	case "train.use_wandb":
		c.Train.UseWandb = parseBool(value)
	case "train.wandb_user":
		c.Train.WandbUser = value
	case "train.wandb_name":
		c.Train.WandbName = value
	case "render.experiment":
		c.Render.Experiment = value
	case "render.seed":
		err = setInt(&c.Render.Seed, key, value)
	case "render.episode_length":
		err = setInt(&c.Render.EpisodeLength, key, value)
	case "render.render_episodes":
		err = setInt(&c.Render.RenderEpisodes, key, value)
	case "render.save_gifs":
		c.Render.SaveGifs = parseBool(value)
	case "render.checkpoint_root":
		c.Render.CheckpointRoot = value
	case "logging.level":
		switch value {
		case "info", "debug", "trace":
			c.Logging.Level = value
		default:
			return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", value)
		}
	case "ledger.enabled":
		c.Ledger.Enabled = parseBool(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer for %s: %s", key, value)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid number for %s: %s", key, value)
	}
	*dst = f
	return nil
}

func parseBool(value string) bool {
	return value == "true" || value == "1"
}
