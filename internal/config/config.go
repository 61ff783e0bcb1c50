// Package config provides configuration loading for mpelaunch.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LaunchConfig contains all mpelaunch configuration settings.
type LaunchConfig struct {
	// Framework locates the external training framework and its interpreter.
	Framework FrameworkConfig `json:"framework" yaml:"framework"`

	// Train holds the hyperparameters forwarded to the training entry point.
	Train TrainConfig `json:"train" yaml:"train"`

	// Render holds the settings forwarded to the render entry point.
	Render RenderConfig `json:"render" yaml:"render"`

	// Logging contains settings for operational and launch-event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Ledger controls the local run history database.
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`
}

// FrameworkConfig describes where the cloned framework lives and how to run it.
type FrameworkConfig struct {
	// RepoDir is the root of the cloned framework checkout.
	// Entry points are resolved relative to it.
	RepoDir string `json:"repo_dir" yaml:"repo_dir"`

	// Python is the interpreter used to run the entry points.
	Python string `json:"python" yaml:"python"`

	// TrainEntry is the training script, relative to RepoDir unless absolute.
	TrainEntry string `json:"train_entry" yaml:"train_entry"`

	// RenderEntry is the render/evaluation script, relative to RepoDir unless absolute.
	RenderEntry string `json:"render_entry" yaml:"render_entry"`

	// WorkDir is the child's working directory. Empty means the launcher's.
	WorkDir string `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`

	// EnvFile is a dotenv file merged into the child environment
	// (e.g. WANDB_API_KEY). Supports ${VAR} expansion.
	EnvFile string `json:"env_file,omitempty" yaml:"env_file,omitempty"`

	// CUDAVisibleDevices, when set, is exported to the child as CUDA_VISIBLE_DEVICES.
	CUDAVisibleDevices string `json:"cuda_visible_devices,omitempty" yaml:"cuda_visible_devices,omitempty"`
}

// TrainConfig is the training flag set. Values are forwarded unvalidated.
type TrainConfig struct {
	Experiment      string  `json:"experiment" yaml:"experiment"`
	Seed            int     `json:"seed" yaml:"seed"`
	TrainingThreads int     `json:"n_training_threads" yaml:"n_training_threads"`
	RolloutThreads  int     `json:"n_rollout_threads" yaml:"n_rollout_threads"`
	NumMiniBatch    int     `json:"num_mini_batch" yaml:"num_mini_batch"`
	EpisodeLength   int     `json:"episode_length" yaml:"episode_length"`
	NumEnvSteps     int64   `json:"num_env_steps" yaml:"num_env_steps"`
	PPOEpoch        int     `json:"ppo_epoch" yaml:"ppo_epoch"`
	UseReLU         bool    `json:"use_relu" yaml:"use_relu"`
	Gain            float64 `json:"gain" yaml:"gain"`
	LR              float64 `json:"lr" yaml:"lr"`
	CriticLR        float64 `json:"critic_lr" yaml:"critic_lr"`

	// UseWandb leaves wandb tracking on. The framework enables wandb by
	// default and turns it off when --use_wandb is passed, so false here
	// forwards that flag.
	UseWandb  bool   `json:"use_wandb" yaml:"use_wandb"`
	WandbUser string `json:"wandb_user,omitempty" yaml:"wandb_user,omitempty"`
	WandbName string `json:"wandb_name,omitempty" yaml:"wandb_name,omitempty"`

	// ExtraArgs are appended verbatim after the fixed flag set.
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
}

// RenderConfig is the render flag set.
type RenderConfig struct {
	Experiment     string `json:"experiment" yaml:"experiment"`
	Seed           int    `json:"seed" yaml:"seed"`
	EpisodeLength  int    `json:"episode_length" yaml:"episode_length"`
	RenderEpisodes int    `json:"render_episodes" yaml:"render_episodes"`
	SaveGifs       bool   `json:"save_gifs" yaml:"save_gifs"`

	// CheckpointRoot is where checkpoints/<scenario>/<algo>/models is rooted.
	CheckpointRoot string `json:"checkpoint_root" yaml:"checkpoint_root"`

	// AllowedModelRoots restricts --model-dir when non-empty.
	AllowedModelRoots []string `json:"allowed_model_roots,omitempty" yaml:"allowed_model_roots,omitempty"`

	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
}

// LoggingConfig configures mpelaunch's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the launch event log in the state directory.
	Level string `json:"level" yaml:"level"`
}

// LedgerConfig configures the run history database.
type LedgerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Default returns a LaunchConfig matching the framework's reference MPE runs.
func Default() *LaunchConfig {
	return &LaunchConfig{
		Framework: FrameworkConfig{
			RepoDir:     "on-policy",
			Python:      "python",
			TrainEntry:  filepath.Join("onpolicy", "scripts", "train", "train_mpe.py"),
			RenderEntry: filepath.Join("onpolicy", "scripts", "render", "render_mpe.py"),
		},
		Train: TrainConfig{
			Experiment:      "check",
			Seed:            1,
			TrainingThreads: 1,
			RolloutThreads:  128,
			NumMiniBatch:    1,
			EpisodeLength:   25,
			NumEnvSteps:     20000000,
			PPOEpoch:        10,
			UseReLU:         true,
			Gain:            0.01,
			LR:              7e-4,
			CriticLR:        7e-4,
		},
		Render: RenderConfig{
			Experiment:     "check",
			Seed:           1,
			EpisodeLength:  25,
			RenderEpisodes: 5,
			SaveGifs:       true,
			CheckpointRoot: "checkpoints",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
	}
}

// DefaultStateDir returns ~/.mpelaunch.
func DefaultStateDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mpelaunch"), nil
}

// DefaultPath returns ~/.mpelaunch/config.yaml.
func DefaultPath() (string, error) {
	dir, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from path, or from the default location when
// path is empty, then applies environment variable overrides.
// Order: defaults -> config file -> environment variables.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (*LaunchConfig, error) {
	config := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		_, statErr := os.Stat(path)
		if statErr == nil || explicit {
			fileConfig, err := LoadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("loading config file: %w", err)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Keys absent from the file keep their default values.
func LoadFromFile(path string) (*LaunchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Framework.RepoDir = expandEnvVars(config.Framework.RepoDir)
	config.Framework.EnvFile = expandEnvVars(config.Framework.EnvFile)
	config.Render.CheckpointRoot = expandEnvVars(config.Render.CheckpointRoot)

	return config, nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func Save(config *LaunchConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the settings mpelaunch itself depends on. Hyperparameters
// are the framework's business and are not range-checked here.
func (c *LaunchConfig) Validate() error {
	if c.Framework.Python == "" {
		return fmt.Errorf("framework.python must not be empty")
	}
	if c.Framework.TrainEntry == "" {
		return fmt.Errorf("framework.train_entry must not be empty")
	}
	if c.Framework.RenderEntry == "" {
		return fmt.Errorf("framework.render_entry must not be empty")
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// EntryPath resolves an entry script against the framework root.
func (f FrameworkConfig) EntryPath(entry string) string {
	if filepath.IsAbs(entry) || f.RepoDir == "" {
		return entry
	}
	return filepath.Join(f.RepoDir, entry)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *LaunchConfig) {
	if v := os.Getenv("MPELAUNCH_REPO_DIR"); v != "" {
		config.Framework.RepoDir = v
	}
	if v := os.Getenv("MPELAUNCH_PYTHON"); v != "" {
		config.Framework.Python = v
	}
	if v := os.Getenv("MPELAUNCH_ENV_FILE"); v != "" {
		config.Framework.EnvFile = v
	}
	if v := os.Getenv("MPELAUNCH_CUDA_VISIBLE_DEVICES"); v != "" {
		config.Framework.CUDAVisibleDevices = v
	}

	if v := os.Getenv("MPELAUNCH_EXPERIMENT"); v != "" {
		config.Train.Experiment = v
		config.Render.Experiment = v
	}
	if v := os.Getenv("MPELAUNCH_SEED"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Train.Seed = n
			config.Render.Seed = n
		}
	}
	if v := os.Getenv("MPELAUNCH_WANDB_USER"); v != "" {
		config.Train.WandbUser = v
	}

	if v := os.Getenv("MPELAUNCH_CHECKPOINT_ROOT"); v != "" {
		config.Render.CheckpointRoot = v
	}

	if v := os.Getenv("MPELAUNCH_LEDGER"); v != "" {
		config.Ledger.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("MPELAUNCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
