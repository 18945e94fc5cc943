package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/export"
)

func newExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <project> <file>",
		Short: "render a file's good segments as a text/srt/vtt transcript",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			project, file := args[0], args[1]

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			splitCount, err := countSplits(orch.Store, project, file)
			if err != nil {
				return err
			}

			f := export.Format(format)
			if f != export.FormatText && f != export.FormatSRT && f != export.FormatVTT {
				return fmt.Errorf("invalid --format %q: must be text, srt, or vtt", format)
			}

			for i := 0; i < splitCount; i++ {
				segments, err := orch.Store.LoadSegments(project, file, i)
				if err != nil {
					continue
				}
				if err := export.Write(cmd.OutOrStdout(), segments, f); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "text/srt/vtt")
	return cmd
}
