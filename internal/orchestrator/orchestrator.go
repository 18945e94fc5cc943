// Package orchestrator implements the pipeline orchestrator (C6): the
// dependency-ordered, per-file/per-split driver that composes every other
// stage (denoise, split, transcribe, diarize, fuse, validate) into one
// incremental run, consulting the artifact store's skippability check
// before redoing work an earlier run already finished.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ppisljar/speech-dataset-creator/internal/fusion"
	"github.com/ppisljar/speech-dataset-creator/internal/jobs"
	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/dependency"
	"github.com/ppisljar/speech-dataset-creator/internal/progress"
	"github.com/ppisljar/speech-dataset-creator/internal/silence"
	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
	"github.com/ppisljar/speech-dataset-creator/internal/splitter"
	"github.com/ppisljar/speech-dataset-creator/internal/store"
	"github.com/ppisljar/speech-dataset-creator/internal/validation"
	"github.com/ppisljar/speech-dataset-creator/pkg/logger"
	"github.com/ppisljar/speech-dataset-creator/pkg/similarity"
)

// OverrideMode controls how ProcessFile treats artifacts an earlier run
// already produced.
type OverrideMode string

const (
	// OverrideNone skips any stage whose output already exists and is
	// fresher than its inputs (the default, incremental behavior).
	OverrideNone OverrideMode = "none"
	// OverrideAll forces every stage to re-run regardless of existing
	// output.
	OverrideAll OverrideMode = "override"
	// OverrideClean deletes a file's entire splits directory before
	// running, so every stage starts from nothing.
	OverrideClean OverrideMode = "clean"
)

// Options controls one ProcessFile invocation.
type Options struct {
	Override OverrideMode
}

// Orchestrator wires every pipeline stage together against one shared
// artifact store and dependency client.
type Orchestrator struct {
	Store       *store.Store
	Client      *dependency.DependencyClient
	Transcriber asr.Transcriber
	Jobs        *jobs.Registry
	Reporter    *progress.Reporter
	Logger      *slog.Logger

	embeddingCache *similarity.EmbeddingCache
}

// New creates an Orchestrator. reporter and log may be nil, in which case
// stage events are dropped rather than reported.
func New(st *store.Store, client *dependency.DependencyClient, transcriber asr.Transcriber, registry *jobs.Registry, reporter *progress.Reporter, log *slog.Logger) *Orchestrator {
	if registry == nil {
		registry = jobs.New()
	}
	return &Orchestrator{
		Store: st, Client: client, Transcriber: transcriber, Jobs: registry, Reporter: reporter, Logger: log,
		embeddingCache: similarity.NewEmbeddingCache(embeddingCacheCapacity),
	}
}

func (o *Orchestrator) log(project, file string, split int, stage, action string, err error) {
	if o.Logger != nil {
		logger.LogStage(o.Logger, project, file, split, stage, action, err)
	}
	if o.Reporter != nil && err == nil {
		o.Reporter.Log("%s/%s split=%d stage=%s: %s", project, file, split, stage, action)
	}
}

// ProcessFile runs the full pipeline for one raw file: denoise, plan and
// cut coarse splits, then for each split run silence detection, transcribe
// and diarize one after another, and fuse their outputs into segments.
func (o *Orchestrator) ProcessFile(ctx context.Context, project, file string, opts Options) error {
	key := jobs.Key(project, file)
	if err := o.Jobs.Start(key); err != nil {
		return err
	}

	err := o.processFile(ctx, project, file, opts)
	if err != nil {
		o.Jobs.Finish(key, model.JobFailed, err.Error())
		return err
	}
	o.Jobs.Finish(key, model.JobCompleted, "processing complete")
	return nil
}

func (o *Orchestrator) processFile(ctx context.Context, project, file string, opts Options) error {
	settings, err := o.Store.LoadSettings(project)
	if err != nil {
		return NewConfigError("failed to load project settings", err)
	}

	paths := o.Store.Paths()
	rawPath := paths.RawFilePath(project, file)
	cleanedPath := paths.CleanedAudioPath(project, file)
	splitsDir := paths.FileSplitsDir(project, file)

	if opts.Override == OverrideClean {
		if err := os.RemoveAll(splitsDir); err != nil {
			return fmt.Errorf("orchestrator: clean %s: %w", splitsDir, err)
		}
	}
	if _, err := paths.EnsureProjectDir(project, file); err != nil {
		return fmt.Errorf("orchestrator: ensure project dir: %w", err)
	}

	if err := o.runDenoise(ctx, project, file, rawPath, cleanedPath, opts); err != nil {
		return err
	}

	totalMS, err := o.Client.ProbeDurationMS(ctx, cleanedPath)
	if err != nil {
		return NewOperatorError("probe", err)
	}

	planSilences, err := o.detectSilencesOverRange(ctx, cleanedPath)
	if err != nil {
		return NewOperatorError("plan-silences", err)
	}
	boundaries := splitter.Plan(planSilences, totalMS, settings.SplitTargetMS)

	o.Jobs.Update(jobs.Key(project, file), 0, "cutting splits", "split")
	for i, b := range boundaries {
		if err := o.cutSplit(ctx, project, file, i, cleanedPath, b, opts); err != nil {
			return err
		}
	}

	sdbPath := paths.SpeakerDBPath(project)
	sdb, err := speakerdb.Open(project, sdbPath)
	if err != nil {
		return fmt.Errorf("orchestrator: open speaker db: %w", err)
	}

	threshold := settings.ResolveSpeakerThreshold()
	for i := range boundaries {
		if ctx.Err() != nil {
			return NewCancelledError("process")
		}
		progressPct := int(float64(i+1) / float64(len(boundaries)) * 100)
		o.Jobs.Update(jobs.Key(project, file), progressPct, fmt.Sprintf("split %d/%d", i+1, len(boundaries)), "fuse")
		if err := o.processSplit(ctx, project, file, i, settings, sdb, threshold, opts); err != nil {
			return err
		}
	}

	return sdb.Save()
}

func (o *Orchestrator) runDenoise(ctx context.Context, project, file, rawPath, cleanedPath string, opts Options) error {
	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		done, err := store.Exists(cleanedPath, rawPath)
		if err == nil && done {
			o.log(project, file, 0, "denoise", "skipped (already done)", nil)
			return nil
		}
	}
	err := o.Client.Denoise(ctx, rawPath, cleanedPath)
	o.log(project, file, 0, "denoise", "complete", err)
	return err
}

// detectSilencesOverRange runs the silence-detection backend over the whole
// cleaned file, for split planning only — not persisted as a project
// artifact (only per-split silence maps are).
func (o *Orchestrator) detectSilencesOverRange(ctx context.Context, cleanedPath string) (model.SilenceMap, error) {
	resp, err := o.Client.ExecuteCommand(ctx, dependency.CommandRequest{
		Command: "ffmpeg",
		Args:    []string{"-i", cleanedPath, "-af", "silencedetect=noise=-40dB:d=0.5", "-f", "null", "-"},
	})
	if err != nil {
		return nil, err
	}
	return silence.ParseFFmpegOutput(resp.Stderr), nil
}

func (o *Orchestrator) cutSplit(ctx context.Context, project, file string, splitIndex int, cleanedPath string, b splitter.Boundary, opts Options) error {
	paths := o.Store.Paths()
	splitPath := paths.SplitAudioPath(project, file, splitIndex)

	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		done, err := store.Exists(splitPath, cleanedPath)
		if err == nil && done {
			o.log(project, file, splitIndex, "split", "skipped (already done)", nil)
			return nil
		}
	}
	err := o.Client.CutAudio(ctx, cleanedPath, splitPath, b.StartMS, b.EndMS)
	o.log(project, file, splitIndex, "split", "complete", err)
	return err
}

func (o *Orchestrator) processSplit(ctx context.Context, project, file string, splitIndex int, settings model.Settings, sdb *speakerdb.DB, threshold float64, opts Options) error {
	paths := o.Store.Paths()
	splitPath := paths.SplitAudioPath(project, file, splitIndex)

	silences, err := o.runSilenceDetect(ctx, project, file, splitIndex, splitPath, opts)
	if err != nil {
		return err
	}

	tokens, err := o.runTranscribe(ctx, project, file, splitIndex, splitPath, settings, opts)
	if err != nil {
		return err
	}

	diar, err := o.runDiarize(ctx, project, file, splitIndex, splitPath, settings, opts)
	if err != nil {
		return err
	}

	segmentsRawPath := paths.SegmentsRawPath(project, file, splitIndex)
	transcriptionPath := paths.TranscriptionPath(project, file, splitIndex)
	diarPath := paths.DiarizationPath(project, file, splitIndex, settings.DiarizationBackend)
	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		if done, _ := store.Exists(segmentsRawPath, splitPath, transcriptionPath, diarPath); done {
			o.log(project, file, splitIndex, "fuse", "skipped (already done)", nil)
			return nil
		}
	}

	extractor := &clipEmbeddingExtractor{client: o.Client, splitPath: splitPath, backend: settings.DiarizationBackend, cache: o.embeddingCache}
	engine := &fusion.Engine{Extractor: extractor, Assigner: sdb}
	fusionSettings := fusion.Settings{
		SilencePadMS:        settings.SilencePadMS,
		MinSilenceLengthMS:  settings.MinSilenceLengthMS,
		BuildSubsegments:    settings.BuildSubsegments,
		JoinSubsegments:     settings.JoinSubsegments,
		SpeakerSimThreshold: threshold,
	}
	segments, err := engine.Fuse(tokens, diar, silences, fusionSettings)
	if err != nil {
		o.log(project, file, splitIndex, "fuse", "failed", err)
		return fmt.Errorf("orchestrator: fuse split %d: %w", splitIndex, err)
	}

	if err := o.Store.SaveSegmentsRaw(project, file, splitIndex, segments); err != nil {
		return err
	}
	if err := o.Store.SaveSegments(project, file, splitIndex, segments); err != nil {
		return err
	}
	o.log(project, file, splitIndex, "fuse", "complete", nil)
	return nil
}

func (o *Orchestrator) runSilenceDetect(ctx context.Context, project, file string, splitIndex int, splitPath string, opts Options) (model.SilenceMap, error) {
	silencesPath := o.Store.Paths().SilencesPath(project, file, splitIndex)
	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		if done, _ := store.Exists(silencesPath, splitPath); done {
			o.log(project, file, splitIndex, "silences", "skipped (already done)", nil)
			return o.Store.LoadSilences(project, file, splitIndex)
		}
	}
	resp, err := o.Client.ExecuteCommand(ctx, dependency.CommandRequest{
		Command: "ffmpeg",
		Args:    []string{"-i", splitPath, "-af", "silencedetect=noise=-40dB:d=0.5", "-f", "null", "-"},
	})
	if err != nil {
		o.log(project, file, splitIndex, "silences", "failed", err)
		return nil, err
	}
	sm := silence.ParseFFmpegOutput(resp.Stderr)
	if err := o.Store.SaveSilences(project, file, splitIndex, sm); err != nil {
		return nil, err
	}
	o.log(project, file, splitIndex, "silences", "complete", nil)
	return sm, nil
}

func (o *Orchestrator) runTranscribe(ctx context.Context, project, file string, splitIndex int, splitPath string, settings model.Settings, opts Options) ([]asr.Token, error) {
	transcriptionPath := o.Store.Paths().TranscriptionPath(project, file, splitIndex)
	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		if done, _ := store.Exists(transcriptionPath, splitPath); done {
			o.log(project, file, splitIndex, "transcribe", "skipped (already done)", nil)
			return o.Store.LoadTranscription(project, file, splitIndex)
		}
	}
	result, err := o.Transcriber.Transcribe(ctx, splitPath, &asr.TranscribeOptions{Language: settings.Language})
	if err != nil {
		o.log(project, file, splitIndex, "transcribe", "failed", err)
		return nil, err
	}
	if err := o.Store.SaveTranscription(project, file, splitIndex, result.Tokens); err != nil {
		return nil, err
	}
	o.log(project, file, splitIndex, "transcribe", "complete", nil)
	return result.Tokens, nil
}

func (o *Orchestrator) runDiarize(ctx context.Context, project, file string, splitIndex int, splitPath string, settings model.Settings, opts Options) (model.DiarizationTrack, error) {
	backend := settings.DiarizationBackend
	diarPath := o.Store.Paths().DiarizationPath(project, file, splitIndex, backend)
	if opts.Override != OverrideAll && opts.Override != OverrideClean {
		if done, _ := store.Exists(diarPath, splitPath); done {
			o.log(project, file, splitIndex, "diarize", "skipped (already done)", nil)
			return o.Store.LoadDiarization(project, file, splitIndex, backend)
		}
	}
	tmpCSV := diarPath + ".tmp.csv"
	err := o.Client.RunDiarization(ctx, splitPath, tmpCSV, dependency.DiarizationOptions{
		Backend:     backend,
		MaxSpeakers: settings.MaxSpeakers,
	})
	if err != nil {
		o.log(project, file, splitIndex, "diarize", "failed", err)
		return nil, err
	}
	defer os.Remove(tmpCSV)

	track, err := parseDiarizationCSV(tmpCSV)
	if err != nil {
		return nil, err
	}
	if err := o.Store.SaveDiarization(project, file, splitIndex, backend, track); err != nil {
		return nil, err
	}
	o.log(project, file, splitIndex, "diarize", "complete", nil)
	return track, nil
}

// ValidateFile re-transcribes every good segment's audio clip and compares
// it against the stored text, appending failures to the bad-segments log.
func (o *Orchestrator) ValidateFile(ctx context.Context, project, file string, splitCount int, settings model.Settings) ([]model.ValidationReport, error) {
	var allReports []model.ValidationReport
	tmpDir, err := os.MkdirTemp("", "validate-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	for splitIndex := 0; splitIndex < splitCount; splitIndex++ {
		segments, err := o.Store.LoadSegments(project, file, splitIndex)
		if err != nil {
			continue
		}
		splitPath := o.Store.Paths().SplitAudioPath(project, file, splitIndex)

		var clips []validation.SegmentClip
		for _, seg := range segments {
			if seg.Status != model.SegStatusGood {
				continue
			}
			clipPath := filepath.Join(tmpDir, fmt.Sprintf("seg_%d_%d.wav", splitIndex, seg.SegIndex))
			if err := o.Client.CutAudio(ctx, splitPath, clipPath, seg.Main.StartMS, seg.Main.EndMS); err != nil {
				continue
			}
			clips = append(clips, validation.SegmentClip{
				File: file, SplitIndex: splitIndex, SegIndex: seg.SegIndex,
				ClipPath: clipPath, ExpectedText: seg.Main.Text,
			})
		}

		engine := &validation.Engine{
			Transcriber: o.Transcriber,
			MaxWorkers:  settings.MaxWorkers,
			Threshold:   settings.ValidationThreshold,
			Checkpoint: func(processed []validation.SegmentClip) error {
				return nil
			},
		}
		reports, bad, err := engine.Run(ctx, clips, nil)
		if err != nil {
			return allReports, err
		}
		for _, b := range bad {
			b.RecordedAt = time.Now().UTC()
			if err := o.Store.AppendBadSegment(project, b); err != nil {
				return allReports, err
			}
		}
		allReports = append(allReports, reports...)
	}
	return allReports, nil
}
