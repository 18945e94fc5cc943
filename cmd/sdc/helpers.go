package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppisljar/speech-dataset-creator/internal/jobs"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/degradation"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/dependency"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/health"
	"github.com/ppisljar/speech-dataset-creator/internal/orchestrator"
	"github.com/ppisljar/speech-dataset-creator/internal/progress"
	"github.com/ppisljar/speech-dataset-creator/internal/store"
	"github.com/ppisljar/speech-dataset-creator/pkg/logger"
)

// degradedTranscriber adapts a degradation.DegradationController, which
// exposes GetTranscriber() rather than implementing asr.Transcriber itself,
// so the orchestrator can hold one Transcriber and always get back whichever
// backend is currently healthy.
type degradedTranscriber struct {
	controller *degradation.DegradationController
}

func (d *degradedTranscriber) Transcribe(ctx context.Context, audioPath string, opts *asr.TranscribeOptions) (*asr.TranscriptionResult, error) {
	return d.controller.GetTranscriber().Transcribe(ctx, audioPath, opts)
}

func (d *degradedTranscriber) HealthCheck(ctx context.Context) (bool, error) {
	return d.controller.GetTranscriber().HealthCheck(ctx)
}

func (d *degradedTranscriber) Name() string {
	return d.controller.GetTranscriber().Name()
}

// buildOrchestrator assembles the store, dependency client, transcriber and
// registry a command needs, from the resolved global Config. The primary
// transcriber is an HTTPTranscriber when cfg.ServiceURL is set and a
// CLITranscriber over cfg.AsrProgramPath otherwise; a
// MockTranscriber always backs it up so a split with an unreachable ASR
// backend degrades instead of failing the whole file.
func buildOrchestrator(cfg *Config) (*orchestrator.Orchestrator, error) {
	st := store.New(cfg.DataDir)

	mode := dependency.ExecutionMode(cfg.ExecutorMode)
	client, err := dependency.NewClient(dependency.ExecutorConfig{
		Mode:             mode,
		ServiceURL:       cfg.ServiceURL,
		SharedVolumePath: cfg.DataDir,
		DefaultTimeout:   10 * time.Minute,
		AuditLogPath:     cfg.AuditLogPath,
	})
	if err != nil {
		return nil, fmt.Errorf("build dependency client: %w", err)
	}

	var primary asr.Transcriber
	if cfg.ServiceURL != "" {
		primary = asr.NewHTTPTranscriber(cfg.ServiceURL)
	} else {
		cli, err := asr.NewCLITranscriber(cfg.AsrProgramPath, cfg.AsrModelPath)
		if err != nil {
			return nil, fmt.Errorf("build CLI transcriber: %w", err)
		}
		primary = cli
	}

	checker := health.NewHealthChecker(primary, 5*time.Minute, 3)
	go checker.Start(context.Background())
	controller := degradation.NewDegradationController(primary, asr.NewMockTranscriber(), checker)

	log, err := logger.New(logger.Config{Environment: cfg.LogEnvironment, LogFilePath: cfg.LogFilePath})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	reporter := progress.NewDefault()
	registry := jobs.New()

	return orchestrator.New(st, client, &degradedTranscriber{controller: controller}, registry, reporter, log), nil
}

// outputFormat reads the resolved --output flag off a command.
func outputFormat(cmd *cobra.Command) string {
	cfg := LoadConfig(cmd)
	return cfg.Output
}
