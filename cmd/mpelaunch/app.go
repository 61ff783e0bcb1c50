package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/config"
	"github.com/mpelaunch/mpelaunch/internal/launch"
	"github.com/mpelaunch/mpelaunch/internal/ledger"
	"github.com/mpelaunch/mpelaunch/internal/logging"
)

// newRunner builds the child-process runner. Tests replace it.
var newRunner = func(cmd *cobra.Command, logger *slog.Logger) launch.Runner {
	r := launch.NewExecRunner(logger)
	r.Stdout = cmd.OutOrStdout()
	r.Stderr = cmd.ErrOrStderr()
	return r
}

// app holds what a launching command needs: config, loggers and the ledger.
type app struct {
	cfg      *config.LaunchConfig
	logger   *slog.Logger
	events   *logging.EventLog
	ledger   *ledger.Store
	stateDir string
	jsonOut  bool
}

// loadConfig reads the config named by --config (or the default file) and
// applies --log-level.
func loadConfig(cmd *cobra.Command) (*config.LaunchConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// stateDir returns --state-dir or ~/.mpelaunch.
func stateDir(cmd *cobra.Command) (string, error) {
	if dir, _ := cmd.Flags().GetString("state-dir"); dir != "" {
		return dir, nil
	}
	return config.DefaultStateDir()
}

// newApp loads configuration and opens the ledger when withLedger is set and
// the config enables it. A ledger that cannot be opened is logged and skipped.
func newApp(cmd *cobra.Command, withLedger bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir, err := stateDir(cmd)
	if err != nil {
		return nil, err
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	a := &app{
		cfg:      cfg,
		logger:   logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
		stateDir: dir,
		jsonOut:  jsonOut,
	}

	if withLedger {
		a.events = logging.NewEventLog(dir, cfg.Logging.Level)
		if cfg.Ledger.Enabled {
			store, err := ledger.Open(cmd.Context(), dir)
			if err != nil {
				a.logger.Warn("run ledger unavailable, continuing without it", "error", err)
			} else {
				a.ledger = store
			}
		}
	}
	return a, nil
}

// Close releases the ledger and event log.
func (a *app) Close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn("closing run ledger", "error", err)
		}
	}
	a.events.Close()
}

// runMeta describes the launches of one invocation for the ledger.
type runMeta struct {
	kind       ledger.Kind
	scenario   string
	algorithm  string
	experiment string
}

// hooks records each launch in the ledger, the event log and the logger.
// Ledger failures never affect the launch.
func (a *app) hooks(ctx context.Context, meta runMeta) launch.Hooks {
	host, _ := os.Hostname()
	return launch.Hooks{
		Started: func(l launch.Launch) string {
			a.logger.Info("launching", "kind", meta.kind, "scenario", meta.scenario,
				"algorithm", meta.algorithm, "seed", l.Seed)
			a.logger.Debug("command", "argv", l.Command.String(), "dir", l.Command.Dir)
			a.events.Log(map[string]any{
				"event":     "start",
				"kind":      string(meta.kind),
				"scenario":  meta.scenario,
				"algorithm": meta.algorithm,
				"seed":      l.Seed,
				"argv":      l.Command.Argv(),
			})

			if a.ledger == nil {
				return ""
			}
			id, err := a.ledger.Begin(context.WithoutCancel(ctx), ledger.Run{
				Kind:       meta.kind,
				Scenario:   meta.scenario,
				Algorithm:  meta.algorithm,
				Experiment: meta.experiment,
				Seed:       l.Seed,
				Argv:       l.Command.Argv(),
				WorkDir:    l.Command.Dir,
				Host:       host,
			})
			if err != nil {
				a.logger.Warn("recording run start", "error", err)
				return ""
			}
			return id
		},
		Finished: func(id string, r launch.Result) {
			attrs := []any{"seed", r.Launch.Seed, "exit_code", r.Code}
			if r.Err != nil {
				attrs = append(attrs, "error", r.Err)
			}
			a.logger.Info("child exited", attrs...)

			event := map[string]any{
				"event":     "finish",
				"kind":      string(meta.kind),
				"scenario":  meta.scenario,
				"algorithm": meta.algorithm,
				"seed":      r.Launch.Seed,
				"exit_code": r.Code,
			}
			if r.Err != nil {
				event["error"] = r.Err.Error()
			}
			a.events.Log(event)

			if a.ledger == nil || id == "" {
				return
			}
			if err := a.ledger.Finish(context.WithoutCancel(ctx), id, r.Code, r.Err); err != nil {
				a.logger.Warn("recording run finish", "id", id, "error", err)
			}
		},
	}
}

// interruptContext returns a context cancelled on SIGINT/SIGTERM. The
// runner forwards the cancellation to running children as an interrupt.
func interruptContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, stopping children", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// execute runs launches through the configured runner and turns a non-zero
// status into an ExitError carrying it.
func (a *app) execute(cmd *cobra.Command, meta runMeta, launches []launch.Launch, opts launch.SweepOptions) error {
	ctx, stop := interruptContext(cmd.Context(), a.logger)
	defer stop()

	runner := newRunner(cmd, a.logger)
	opts.Hooks = a.hooks(ctx, meta)
	code, err := launch.Sweep(ctx, runner, launches, opts)
	if err != nil {
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
