package orchestrator

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
	"github.com/ppisljar/speech-dataset-creator/internal/operator/dependency"
	"github.com/ppisljar/speech-dataset-creator/internal/speakerdb"
	"github.com/ppisljar/speech-dataset-creator/pkg/similarity"
)

// embeddingCacheCapacity bounds how many distinct clips' embeddings a
// single orchestrator process keeps warm; a project's speaker turns rarely
// exceed a few hundred per run.
const embeddingCacheCapacity = 512

// clipEmbeddingExtractor implements fusion.EmbeddingExtractor by cutting a
// short clip for the representative turn and running the configured
// diarization backend's embedding extraction model over it. Extracted
// vectors are cached by clip content hash so re-running fusion against the
// same turn (e.g. during Recheck tuning) skips the external call.
type clipEmbeddingExtractor struct {
	client    *dependency.DependencyClient
	splitPath string
	backend   string
	cache     *similarity.EmbeddingCache
}

func (e *clipEmbeddingExtractor) ExtractLabelEmbedding(label string, turn model.DiarizationTurn) (speakerdb.Embedding, error) {
	tmp, err := os.CreateTemp("", "embed-clip-*.wav")
	if err != nil {
		return nil, fmt.Errorf("embedding: create temp clip: %w", err)
	}
	clipPath := tmp.Name()
	tmp.Close()
	defer os.Remove(clipPath)

	ctx := context.Background()
	startMS := int(turn.StartS * 1000)
	endMS := int(turn.EndS * 1000)
	if err := e.client.CutAudio(ctx, e.splitPath, clipPath, startMS, endMS); err != nil {
		return nil, fmt.Errorf("embedding: cut clip for label %s: %w", label, err)
	}

	clipData, err := os.ReadFile(clipPath)
	if err != nil {
		return nil, fmt.Errorf("embedding: read clip for label %s: %w", label, err)
	}

	if e.cache != nil {
		if vec, ok := e.cache.Get(clipData); ok {
			return speakerdb.Embedding(vec), nil
		}
	}

	vec, err := e.client.ExtractEmbedding(ctx, clipPath, e.backend)
	if err != nil {
		return nil, fmt.Errorf("embedding: extract for label %s: %w", label, err)
	}
	if e.cache != nil {
		e.cache.Put(clipData, vec)
	}
	return speakerdb.Embedding(vec), nil
}

// parseDiarizationCSV reads a {speaker,start,end} CSV written directly by a
// diarization backend (not yet passed through the store's own
// marshal/unmarshal round trip).
func parseDiarizationCSV(path string) (model.DiarizationTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("diarize: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("diarize: read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return model.DiarizationTrack{}, nil
	}

	start := 0
	if len(rows[0]) >= 3 && rows[0][0] == "speaker" {
		start = 1
	}

	track := make(model.DiarizationTrack, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if len(row) < 3 {
			continue
		}
		startS, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		endS, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		track = append(track, model.DiarizationTurn{SpeakerLabel: row[0], StartS: startS, EndS: endS})
	}
	return track, nil
}
