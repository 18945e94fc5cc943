package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
)

func TestSimilarityRatio_IdenticalTextIs100(t *testing.T) {
	assert.Equal(t, 100.0, SimilarityRatio("good morning", "good morning"))
}

func TestSimilarityRatio_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, 100.0, SimilarityRatio("Good   Morning", "good morning"))
}

func TestSimilarityRatio_ValidationCutoffScenario(t *testing.T) {
	ratio := SimilarityRatio("good morning", "good morning sir")
	assert.InDelta(t, 82.0, ratio, 1.0)
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audioPath string, opts *asr.TranscribeOptions) (*asr.TranscriptionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &asr.TranscriptionResult{Text: s.text}, nil
}
func (s *stubTranscriber) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
func (s *stubTranscriber) Name() string                                  { return "stub" }

func TestEngine_Run_ClassifiesGoodAndBad(t *testing.T) {
	engine := &Engine{
		Transcriber: &stubTranscriber{text: "good morning"},
		MaxWorkers:  2,
		Threshold:   85,
	}
	clips := []SegmentClip{
		{File: "f", SplitIndex: 0, SegIndex: 0, ClipPath: "a.wav", ExpectedText: "good morning"},
		{File: "f", SplitIndex: 0, SegIndex: 1, ClipPath: "b.wav", ExpectedText: "completely different text"},
	}

	reports, bad, err := engine.Run(context.Background(), clips, nil)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Len(t, bad, 1)
}

func TestEngine_Run_SkipsAlreadyProcessed(t *testing.T) {
	engine := &Engine{
		Transcriber: &stubTranscriber{text: "good morning"},
		MaxWorkers:  2,
		Threshold:   85,
	}
	clips := []SegmentClip{
		{SegIndex: 0, ClipPath: "a.wav", ExpectedText: "good morning"},
		{SegIndex: 1, ClipPath: "b.wav", ExpectedText: "good morning"},
	}
	alreadyDone := map[int]bool{0: true}

	reports, _, err := engine.Run(context.Background(), clips, alreadyDone)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].SegIndex)
}

func TestEngine_Run_TranscriberErrorMarksValidationError(t *testing.T) {
	engine := &Engine{
		Transcriber: &stubTranscriber{err: assertErr{}},
		MaxWorkers:  1,
		Threshold:   85,
	}
	clips := []SegmentClip{{SegIndex: 0, ClipPath: "a.wav", ExpectedText: "hi"}}

	reports, bad, err := engine.Run(context.Background(), clips, nil)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "validation_error", string(reports[0].Verdict))
	assert.Empty(t, bad)
}

type assertErr struct{}

func (assertErr) Error() string { return "transcribe failed" }
