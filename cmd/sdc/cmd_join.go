package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
)

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <project> <speaker-a> <speaker-b>",
		Short: "merge speaker-b's embeddings into speaker-a in a project's speaker database",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(cmd)
			project := args[0]

			a, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid speaker id %q: %w", args[1], err)
			}
			b, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid speaker id %q: %w", args[2], err)
			}

			orch, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}

			sdb, err := speakerdb.Open(project, orch.Store.Paths().SpeakerDBPath(project))
			if err != nil {
				return fmt.Errorf("open speaker db: %w", err)
			}

			if err := sdb.Merge(a, b); err != nil {
				return err
			}
			if err := sdb.Save(); err != nil {
				return fmt.Errorf("save speaker db: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "merged speaker %d into speaker %d\n", b, a)
			return nil
		},
	}
	return cmd
}
