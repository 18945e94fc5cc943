package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/asr"
	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
)

type fakeExtractor struct {
	embeddings map[string]speakerdb.Embedding
}

func (f *fakeExtractor) ExtractLabelEmbedding(label string, turn model.DiarizationTurn) (speakerdb.Embedding, error) {
	return f.embeddings[label], nil
}

type fakeAssigner struct {
	assignments map[string]int
	nextID      int
	keyFor      func(speakerdb.Embedding) string
}

func (f *fakeAssigner) Assign(embedding speakerdb.Embedding, threshold float64) (int, speakerdb.AssignDecision, error) {
	key := f.keyFor(embedding)
	if id, ok := f.assignments[key]; ok {
		return id, speakerdb.DecisionMatched, nil
	}
	id := f.nextID
	f.nextID++
	f.assignments[key] = id
	return id, speakerdb.DecisionNew, nil
}

func embKey(e speakerdb.Embedding) string {
	s := ""
	for _, v := range e {
		s += fmtFloat(v)
	}
	return s
}

func fmtFloat(v float64) string {
	return string([]byte{byte(int(v*1000) % 256)})
}

func defaultSettings() Settings {
	return Settings{
		SilencePadMS:        50,
		MinSilenceLengthMS:  500,
		BuildSubsegments:    true,
		JoinSubsegments:     false,
		SpeakerSimThreshold: 0.6,
	}
}

func TestFuse_SilenceBoundarySplit(t *testing.T) {
	tokens := []asr.Token{
		{StartMS: 0, EndMS: 500, Text: "Hello", Confidence: 0.9},
		{StartMS: 600, EndMS: 900, Text: "world.", Confidence: 0.92},
	}
	silences := model.SilenceMap{
		{StartMS: 500, EndMS: 600},
		{StartMS: 900, EndMS: 1500},
	}

	engine := &Engine{}
	segments, err := engine.Fuse(tokens, nil, silences, defaultSettings())
	require.NoError(t, err)
	require.Len(t, segments, 1)

	seg := segments[0]
	assert.Equal(t, 0, seg.Main.StartMS)
	assert.Equal(t, 900, seg.Main.EndMS)
	assert.Equal(t, "Hello world.", seg.Main.Text)
	assert.Equal(t, 0, seg.Main.SpeakerID)
	assert.Equal(t, model.SegStatusGood, seg.Status)
	assert.LessOrEqual(t, seg.Main.PadEndMS, 50)
}

func TestFuse_SpeakerChange(t *testing.T) {
	tokens := []asr.Token{
		{StartMS: 0, EndMS: 400, Text: "A", Confidence: 0.9},
		{StartMS: 500, EndMS: 900, Text: "B", Confidence: 0.9},
	}
	diar := model.DiarizationTrack{
		{SpeakerLabel: "L1", StartS: 0, EndS: 0.45},
		{SpeakerLabel: "L2", StartS: 0.45, EndS: 0.95},
	}
	silences := model.SilenceMap{{StartMS: 400, EndMS: 500}}

	embeddings := map[string]speakerdb.Embedding{
		"L1": {1, 0},
		"L2": {0, 1},
	}
	assigner := &fakeAssigner{assignments: map[string]int{}, keyFor: embKey}
	engine := &Engine{
		Extractor: &fakeExtractor{embeddings: embeddings},
		Assigner:  assigner,
	}

	settings := defaultSettings()
	settings.MinSilenceLengthMS = 100
	segments, err := engine.Fuse(tokens, diar, silences, settings)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, 0, segments[0].Main.SpeakerID)
	assert.Equal(t, 1, segments[1].Main.SpeakerID)
}

func TestFuse_OverlapDetection(t *testing.T) {
	segments := []model.Segment{
		{SegIndex: 0, Main: model.SegRange{StartMS: 1000, EndMS: 2000, SpeakerID: 0}},
		{SegIndex: 1, Main: model.SegRange{StartMS: 1500, EndMS: 2500, SpeakerID: 1}},
	}
	markOverlaps(segments)
	assert.Equal(t, model.SegStatusBad, segments[0].Status)
	assert.Equal(t, model.SegStatusBad, segments[1].Status)
}

func TestFuse_EmptyDiarizationYieldsSingleSpeaker(t *testing.T) {
	tokens := []asr.Token{
		{StartMS: 0, EndMS: 400, Text: "hi", Confidence: 0.9},
	}
	engine := &Engine{}
	segments, err := engine.Fuse(tokens, nil, nil, defaultSettings())
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 0, segments[0].Main.SpeakerID)
}

func TestFuse_ZeroDurationTokensDropped(t *testing.T) {
	tokens := []asr.Token{
		{StartMS: 0, EndMS: 0, Text: "glitch", Confidence: 0.9},
		{StartMS: 100, EndMS: 400, Text: "real", Confidence: 0.9},
	}
	engine := &Engine{}
	segments, err := engine.Fuse(tokens, nil, nil, defaultSettings())
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "real", segments[0].Main.Text)
}

func TestFuse_LowConfidenceDefaultsBad(t *testing.T) {
	tokens := []asr.Token{
		{StartMS: 0, EndMS: 400, Text: "unsure", Confidence: 0.2},
	}
	engine := &Engine{}
	segments, err := engine.Fuse(tokens, nil, nil, defaultSettings())
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, model.SegStatusBad, segments[0].Status)
}
