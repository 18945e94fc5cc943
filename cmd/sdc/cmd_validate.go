package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/store"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <project> <file>",
		Short: "re-transcribe every good segment's clip and flag mismatches against the stored text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			project, file := args[0], args[1]

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			settings, err := orch.Store.LoadSettings(project)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			splitCount, err := countSplits(orch.Store, project, file)
			if err != nil {
				return err
			}

			reports, err := orch.ValidateFile(cmd.Context(), project, file, splitCount, settings)
			if err != nil {
				return err
			}

			if outputFormat(cmd) == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}

			good, bad := 0, 0
			for _, r := range reports {
				if r.Verdict == "good" {
					good++
				} else {
					bad++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s/%s: %d good, %d bad, %d total\n", project, file, good, bad, len(reports))
			return nil
		},
	}
	return cmd
}

// countSplits counts how many split audio clips a file has already produced,
// by probing split_0000.wav, split_0001.wav, ... until one is missing.
func countSplits(st *store.Store, project, file string) (int, error) {
	paths := st.Paths()
	n := 0
	for {
		if _, err := os.Stat(paths.SplitAudioPath(project, file, n)); err != nil {
			break
		}
		n++
	}
	return n, nil
}
