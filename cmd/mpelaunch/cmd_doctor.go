package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/checkpoint"
	"github.com/mpelaunch/mpelaunch/internal/config"
	"github.com/mpelaunch/mpelaunch/internal/ledger"
	"github.com/mpelaunch/mpelaunch/internal/scenario"
)

// check is one doctor finding.
type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the framework checkout and interpreter",
		Long: `Verify that the configured Python interpreter is on PATH, the framework
checkout and its train/render entry points exist, and every supported
scenario has its scenario module. Exits 1 if any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			checks := runChecks(cfg)
			if dir, err := stateDir(cmd); err == nil && cfg.Ledger.Enabled {
				checks = append(checks, ledgerCheck(cmd, dir))
			}

			failed := 0
			for _, c := range checks {
				if !c.OK {
					failed++
				}
			}

			if jsonOut {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"checks": checks,
					"failed": failed,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for _, c := range checks {
					mark := "ok  "
					if !c.OK {
						mark = "FAIL"
					}
					fmt.Fprintf(out, "[%s] %-28s %s\n", mark, c.Name, c.Detail)
				}
			}

			if failed > 0 {
				return &ExitError{Code: 1, Err: fmt.Errorf("%d check(s) failed", failed)}
			}
			return nil
		},
	}
}

// runChecks inspects the framework installation described by cfg.
func runChecks(cfg *config.LaunchConfig) []check {
	fw := cfg.Framework
	var checks []check

	if path, err := exec.LookPath(fw.Python); err != nil {
		checks = append(checks, check{Name: "python", Detail: err.Error()})
	} else {
		checks = append(checks, check{Name: "python", OK: true, Detail: path})
	}

	if info, err := os.Stat(fw.RepoDir); err != nil {
		checks = append(checks, check{Name: "repo_dir", Detail: err.Error()})
	} else if !info.IsDir() {
		checks = append(checks, check{Name: "repo_dir", Detail: fw.RepoDir + " is not a directory"})
	} else {
		checks = append(checks, check{Name: "repo_dir", OK: true, Detail: fw.RepoDir})
	}

	for _, entry := range []struct{ name, path string }{
		{"train_entry", fw.EntryPath(fw.TrainEntry)},
		{"render_entry", fw.EntryPath(fw.RenderEntry)},
	} {
		if _, err := os.Stat(entry.path); err != nil {
			checks = append(checks, check{Name: entry.name, Detail: err.Error()})
		} else {
			checks = append(checks, check{Name: entry.name, OK: true, Detail: entry.path})
		}
	}

	for _, s := range scenario.All() {
		name := "scenario " + s.Name
		if path, err := scenario.File(fw.RepoDir, s.Name); err != nil {
			checks = append(checks, check{Name: name, Detail: err.Error()})
		} else {
			checks = append(checks, check{Name: name, OK: true, Detail: path})
		}
	}

	if fw.EnvFile != "" {
		if _, err := os.Stat(fw.EnvFile); err != nil {
			checks = append(checks, check{Name: "env_file", Detail: err.Error()})
		} else {
			checks = append(checks, check{Name: "env_file", OK: true, Detail: checkpoint.Redact(fw.EnvFile)})
		}
	}

	return checks
}

func ledgerCheck(cmd *cobra.Command, dir string) check {
	store, err := ledger.Open(cmd.Context(), dir)
	if err != nil {
		return check{Name: "run ledger", Detail: err.Error()}
	}
	defer store.Close()
	return check{Name: "run ledger", OK: true, Detail: dir}
}
