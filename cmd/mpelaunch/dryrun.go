package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/launch"
)

// plannedLaunch is the JSON form of a dry-run launch. Environment values are
// never printed since env files usually carry credentials.
type plannedLaunch struct {
	Seed    int      `json:"seed"`
	Command string   `json:"command"`
	Argv    []string `json:"argv"`
	Dir     string   `json:"dir,omitempty"`
	EnvKeys []string `json:"env_keys,omitempty"`
}

// childEnv builds the child environment from the launcher's own.
func (a *app) childEnv() ([]string, error) {
	env, err := launch.Environ(os.Environ(), a.cfg.Framework.EnvFile, a.cfg.Framework.CUDAVisibleDevices)
	if err != nil {
		return nil, fmt.Errorf("building child environment: %w", err)
	}
	return env, nil
}

// printPlan writes the launches without running them.
func (a *app) printPlan(cmd *cobra.Command, launches []launch.Launch) error {
	out := cmd.OutOrStdout()

	if a.jsonOut {
		planned := make([]plannedLaunch, 0, len(launches))
		for _, l := range launches {
			planned = append(planned, plannedLaunch{
				Seed:    l.Seed,
				Command: l.Command.String(),
				Argv:    l.Command.Argv(),
				Dir:     l.Command.Dir,
				EnvKeys: envKeys(launch.Delta(os.Environ(), l.Command.Env)),
			})
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"dry_run":  true,
			"launches": planned,
		})
	}

	for _, l := range launches {
		if l.Command.Dir != "" {
			fmt.Fprintf(out, "cd %s && ", l.Command.Dir)
		}
		fmt.Fprintln(out, l.Command.String())
	}
	return nil
}

func envKeys(entries []string) []string {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		k, _, _ := strings.Cut(e, "=")
		keys = append(keys, k)
	}
	return keys
}

// quoteArgv renders a recorded argv as a shell line.
func quoteArgv(argv []string) string {
	return shellquote.Join(argv...)
}
