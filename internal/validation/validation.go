// Package validation implements the validation engine (C5): for every good
// segment, its clip is re-transcribed through the ASR operator and the
// result is compared against the stored text with a Levenshtein-based
// fuzzy ratio. Segments falling below the configured threshold are marked
// bad and appended to the project's bad-segments log.
package validation

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/pkg/metrics"
)

// SegmentClip is one unit of validation work: a segment's audio clip and
// the text it's expected to contain.
type SegmentClip struct {
	File         string
	SplitIndex   int
	SegIndex     int
	ClipPath     string
	ExpectedText string
}

// CheckpointFunc persists the set of segment indices processed so far, so a
// resumed run can skip work already done. It's called after every batch of
// checkpointInterval completions, never while holding the engine's
// internal locks.
type CheckpointFunc func(processed []SegmentClip) error

// Engine runs the validation pass for one project/file. A fresh Engine is
// expected per invocation — its locks and counters are scoped to the call,
// not shared module-level state.
type Engine struct {
	Transcriber asr.Transcriber
	MaxWorkers  int
	Threshold   int // 0-100
	Checkpoint  CheckpointFunc

	mu            sync.Mutex
	processed     []SegmentClip
	badList       []model.BadSegmentEntry
	reports       []model.ValidationReport
	completeCount int
}

const checkpointInterval = 50

// Run validates every clip, skipping any already present in alreadyDone
// (the resume-from-checkpoint set), and returns a report per clip plus the
// accumulated bad-segment entries. Cancellation is cooperative: workers
// check ctx between segment pickups, never mid-ASR-call.
func (e *Engine) Run(ctx context.Context, clips []SegmentClip, alreadyDone map[int]bool) ([]model.ValidationReport, []model.BadSegmentEntry, error) {
	if e.MaxWorkers <= 0 {
		e.MaxWorkers = 4
	}
	sem := semaphore.NewWeighted(int64(e.MaxWorkers))

	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for _, clip := range clips {
		if alreadyDone != nil && alreadyDone[clip.SegIndex] {
			continue
		}
		select {
		case <-ctx.Done():
			errMu.Lock()
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			errMu.Unlock()
		default:
		}
		if ctx.Err() != nil {
			break
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			errMu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			errMu.Unlock()
			break
		}

		wg.Add(1)
		go func(c SegmentClip) {
			defer wg.Done()
			defer sem.Release(1)
			e.validateOne(ctx, c)
		}(clip)
	}

	wg.Wait()

	e.mu.Lock()
	reports := e.reports
	badList := e.badList
	e.mu.Unlock()

	if firstErr != nil {
		return reports, badList, firstErr
	}
	return reports, badList, nil
}

func (e *Engine) validateOne(ctx context.Context, clip SegmentClip) {
	result, err := e.Transcriber.Transcribe(ctx, clip.ClipPath, &asr.TranscribeOptions{})

	var report model.ValidationReport
	report.SegIndex = clip.SegIndex
	report.ExpectedText = clip.ExpectedText

	if err != nil {
		report.Verdict = model.VerdictValidationError
		report.ObservedText = ""
		metrics.RecordValidationVerdict(string(report.Verdict))
		e.recordCompletion(clip, report, nil)
		return
	}

	report.ObservedText = result.Text
	report.Similarity = SimilarityRatio(clip.ExpectedText, result.Text)

	var bad *model.BadSegmentEntry
	if report.Similarity >= float64(e.Threshold) {
		report.Verdict = model.VerdictGood
	} else {
		report.Verdict = model.VerdictBad
		bad = &model.BadSegmentEntry{
			File:       clip.File,
			SplitIndex: clip.SplitIndex,
			SegIndex:   clip.SegIndex,
			Reason:     fmt.Sprintf("validation similarity %.1f below threshold %d", report.Similarity, e.Threshold),
			Verdict:    model.VerdictBad,
		}
	}
	metrics.RecordValidationVerdict(string(report.Verdict))
	e.recordCompletion(clip, report, bad)
}

func (e *Engine) recordCompletion(clip SegmentClip, report model.ValidationReport, bad *model.BadSegmentEntry) {
	e.mu.Lock()
	e.reports = append(e.reports, report)
	if bad != nil {
		e.badList = append(e.badList, *bad)
	}
	e.processed = append(e.processed, clip)
	e.completeCount++
	shouldCheckpoint := e.completeCount%checkpointInterval == 0
	var batch []SegmentClip
	if shouldCheckpoint {
		batch = make([]SegmentClip, len(e.processed))
		copy(batch, e.processed)
	}
	e.mu.Unlock()

	if shouldCheckpoint && e.Checkpoint != nil {
		_ = e.Checkpoint(batch) // best-effort; a failed checkpoint write doesn't fail validation
	}
}
