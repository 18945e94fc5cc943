package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
)

func newRecheckCmd() *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "recheck <project>",
		Short: "recompute speaker assignment under a new similarity threshold without mutating the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			project := args[0]

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			sdb, err := speakerdb.Open(project, orch.Store.Paths().SpeakerDBPath(project))
			if err != nil {
				return fmt.Errorf("open speaker db: %w", err)
			}

			plan := sdb.Recheck(threshold)

			if outputFormat(cmd) == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}

			if len(plan) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no reassignments at this threshold")
				return nil
			}
			for _, e := range plan {
				fmt.Fprintf(cmd.OutOrStdout(), "embedding %d: speaker %d -> %d (similarity %.3f)\n", e.Index, e.CurrentID, e.ProposedID, e.BestSimScore)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d reassignments proposed; re-run with `join` to apply\n", len(plan))
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.6, "candidate speaker similarity threshold to evaluate")
	return cmd
}
