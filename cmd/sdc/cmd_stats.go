package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <project>",
		Short: "report job status and speaker counts for a project",
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

			jobs := orch.Jobs.Snapshot()

			if outputFormat(cmd) == "json" {
				out := struct {
					Project      string      `json:"project"`
					SpeakerCount int         `json:"speaker_count"`
					Jobs         interface{} `json:"jobs"`
				}{Project: project, SpeakerCount: sdb.SpeakerCount(), Jobs: jobs}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "project %s: %d speakers, %d tracked jobs\n", project, sdb.SpeakerCount(), len(jobs))
			for _, j := range jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %-10s %3d%%  %s\n", j.Key, j.State, j.Progress, j.Message)
			}
			return nil
		},
	}
	return cmd
}
