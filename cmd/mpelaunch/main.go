package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command tree and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	return exitCode(err, stderr)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpelaunch",
		Short: "Launch MAPPO/IPPO training and rendering for MPE scenarios",
		Long: `mpelaunch validates a scenario and algorithm, builds the flag set for the
on-policy MPE training framework and runs its entry point, exiting with the
framework's own status.

Examples:
  mpelaunch train simple_spread rmappo
  mpelaunch train simple_reference ippo --seed-max 3 --parallel 3
  mpelaunch render --scenario simple_spread --algorithm rmappo
  mpelaunch runs list`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.mpelaunch/config.yaml)")
	rootCmd.PersistentFlags().String("state-dir", "", "State directory for the run ledger and event log (default ~/.mpelaunch)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newTrainCmd(),
		newRenderCmd(),
		newRunsCmd(),
		newScenariosCmd(),
		newDoctorCmd(),
		newConfigCmd(),
	)

	return rootCmd
}
