package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpelaunch/mpelaunch/internal/checkpoint"
	"github.com/mpelaunch/mpelaunch/internal/scenario"
)

type scenarioInfo struct {
	Name         string `json:"name"`
	NumAgents    int    `json:"num_agents"`
	NumLandmarks int    `json:"num_landmarks"`
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List supported scenarios and algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			infos := make([]scenarioInfo, 0, len(scenario.All()))
			for _, s := range scenario.All() {
				infos = append(infos, scenarioInfo{
					Name:         s.Name,
					NumAgents:    s.NumAgents(),
					NumLandmarks: s.NumLandmarks(),
				})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"scenarios":  infos,
					"algorithms": scenario.AlgorithmNames(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Scenarios:")
			for _, s := range infos {
				fmt.Fprintf(out, "  %-18s %d agents, %d landmarks\n", s.Name, s.NumAgents, s.NumLandmarks)
			}
			fmt.Fprintln(out, "\nAlgorithms:")
			for _, a := range scenario.AlgorithmNames() {
				fmt.Fprintf(out, "  %s\n", a)
			}
			fmt.Fprintf(out, "\nCheckpoints: %s\n", checkpoint.ModelDir(checkpoint.DefaultRoot, "<scenario>", "<algorithm>"))
			return nil
		},
	}
}
