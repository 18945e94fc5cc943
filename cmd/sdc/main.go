package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/orchestrator"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "sdc",
		Short:   "speech dataset creator - build and curate ASR training datasets",
		Long:    "Drives the denoise -> split -> transcribe -> diarize -> fuse -> validate pipeline over a project's raw recordings.",
		Version: version,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newRecheckCmd())
	rootCmd.AddCommand(newExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to the process exit code documented for
// the CLI surface: PipelineError carries its own code, anything else is
// treated as a generic failure.
func exitCodeFor(err error) int {
	var pe *orchestrator.PipelineError
	if errors.As(err, &pe) {
		return pe.ExitCode()
	}
	return 2
}
