package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/orchestrator"
)

func newProcessCmd() *cobra.Command {
	var override string

	cmd := &cobra.Command{
		Use:   "process <project> <file>",
		Short: "run the denoise -> split -> transcribe -> diarize -> fuse pipeline over one raw file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			project, file := args[0], args[1]

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			opts := orchestrator.Options{Override: orchestrator.OverrideMode(override)}
			if err := orch.ProcessFile(cmd.Context(), project, file, opts); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "processed %s/%s\n", project, file)
			return nil
		},
	}

	cmd.Flags().StringVar(&override, "override", string(orchestrator.OverrideNone), "none/override/clean: how to treat artifacts from an earlier run")
	return cmd
}
