package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/ledger"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the local run ledger",
		Long: `Every train and render launch is recorded in <state-dir>/runs.db with its
command line, start and finish time, and exit code.

Examples:
  mpelaunch runs list
  mpelaunch runs list --scenario simple_spread --kind train --limit 5
  mpelaunch runs show 3f2a9c1e
  mpelaunch runs prune --older-than 720h`,
	}

	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd(), newRunsPruneCmd())
	return cmd
}

// openLedger opens the ledger in the state directory for reading.
func openLedger(cmd *cobra.Command) (*ledger.Store, error) {
	dir, err := stateDir(cmd)
	if err != nil {
		return nil, err
	}
	store, err := ledger.Open(cmd.Context(), dir)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}
	return store, nil
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			scenarioFilter, _ := cmd.Flags().GetString("scenario")
			algorithmFilter, _ := cmd.Flags().GetString("algorithm")
			kindFilter, _ := cmd.Flags().GetString("kind")

			switch ledger.Kind(kindFilter) {
			case "", ledger.KindTrain, ledger.KindRender:
			default:
				return fmt.Errorf("invalid --kind %q (valid: train, render)", kindFilter)
			}

			store, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), ledger.Filter{
				Scenario:  scenarioFilter,
				Algorithm: algorithmFilter,
				Kind:      ledger.Kind(kindFilter),
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			if jsonOut {
				if runs == nil {
					runs = []ledger.Run{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "%-8s  %-6s  %-16s  %-6s  %4s  %-19s  %s\n",
				"ID", "KIND", "SCENARIO", "ALGO", "SEED", "STARTED", "STATUS")
			for _, r := range runs {
				fmt.Fprintf(out, "%-8s  %-6s  %-16s  %-6s  %4d  %-19s  %s\n",
					shortID(r.ID), r.Kind, r.Scenario, r.Algorithm, r.Seed,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status())
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().String("scenario", "", "Only runs of this scenario")
	cmd.Flags().String("algorithm", "", "Only runs of this algorithm")
	cmd.Flags().String("kind", "", "Only runs of this kind: train or render")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run by id or unique id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			store, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			r, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %q: %w", args[0], err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(r)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:         %s\n", r.ID)
			fmt.Fprintf(out, "Kind:       %s\n", r.Kind)
			fmt.Fprintf(out, "Scenario:   %s\n", r.Scenario)
			fmt.Fprintf(out, "Algorithm:  %s\n", r.Algorithm)
			fmt.Fprintf(out, "Experiment: %s\n", r.Experiment)
			fmt.Fprintf(out, "Seed:       %d\n", r.Seed)
			fmt.Fprintf(out, "Started:    %s\n", r.StartedAt.Local().Format(time.RFC3339))
			if r.FinishedAt != nil {
				fmt.Fprintf(out, "Finished:   %s (%s)\n", r.FinishedAt.Local().Format(time.RFC3339),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
			}
			fmt.Fprintf(out, "Status:     %s\n", r.Status())
			if r.Error != "" {
				fmt.Fprintf(out, "Error:      %s\n", r.Error)
			}
			if r.Host != "" {
				fmt.Fprintf(out, "Host:       %s\n", r.Host)
			}
			if r.WorkDir != "" {
				fmt.Fprintf(out, "Work dir:   %s\n", r.WorkDir)
			}
			fmt.Fprintf(out, "Command:    %s\n", quoteArgv(r.Argv))
			return nil
		},
	}
}

func newRunsPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			store, err := openLedger(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"pruned": n,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s).\n", n)
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete finished runs that started longer ago than this")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
