// Package speakerdb implements the per-project speaker database: a
// cosine-similarity nearest-neighbor index over speaker embeddings, mapping
// diarization labels to stable global speaker IDs across an entire project.
package speakerdb

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppisljar/speech-dataset-creator/pkg/metrics"
)

// Embedding is a fixed-dim, unit-normalized real vector associated with one
// stored sample for a speaker.
type Embedding []float64

// record is one stored embedding, tagged with the speaker it belongs to.
type record struct {
	SpeakerID int       `json:"speaker_id"`
	Vector    Embedding `json:"vector"`
}

// DB is a project's speaker database: speaker_id -> list of embeddings,
// persisted as a single serialized blob. Assign is guarded by a
// process-wide write lock; readers may snapshot without blocking each
// other.
type DB struct {
	mu       sync.RWMutex
	project  string
	filePath string
	records  []record
	count    int // dense speaker_id allocator, next id == count
}

// Open loads (or initializes) the speaker database for a project from the
// given file path (typically PathManager.SpeakerDBPath(project)).
func Open(project, filePath string) (*DB, error) {
	db := &DB{project: project, filePath: filePath}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *DB) load() error {
	data, err := os.ReadFile(db.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("speakerdb: no existing db, starting empty", "project", db.project)
			return nil
		}
		return fmt.Errorf("speakerdb: read %s: %w", db.filePath, err)
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("speakerdb: unmarshal %s: %w", db.filePath, err)
	}
	db.records = recs
	max := -1
	for _, r := range recs {
		if r.SpeakerID > max {
			max = r.SpeakerID
		}
	}
	db.count = max + 1
	return nil
}

// Save persists the database to disk, write-temp-then-rename for atomicity.
func (db *DB) Save() error {
	db.mu.RLock()
	recs := make([]record, len(db.records))
	copy(recs, db.records)
	db.mu.RUnlock()

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("speakerdb: marshal: %w", err)
	}
	dir := filepath.Dir(db.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("speakerdb: mkdir %s: %w", dir, err)
	}
	tmp := db.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("speakerdb: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, db.filePath); err != nil {
		return fmt.Errorf("speakerdb: rename %s -> %s: %w", tmp, db.filePath, err)
	}
	return nil
}

// AssignDecision reports whether Assign matched an existing speaker or
// minted a new one, for the C11 speaker-assignment metric.
type AssignDecision string

const (
	DecisionNew     AssignDecision = "new"
	DecisionMatched AssignDecision = "matched"
)

// Assign maps an embedding to a speaker_id: the empty DB inserts as speaker
// 0; otherwise the embedding is compared by cosine similarity against every
// stored embedding, and if the best match meets or exceeds threshold it is
// appended to that speaker, else a new speaker is minted.
//
// The comparison against threshold is inclusive: a tie at exactly threshold
// counts as a match.
func (db *DB) Assign(embedding Embedding, threshold float64) (speakerID int, decision AssignDecision, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(db.records) == 0 {
		db.records = append(db.records, record{SpeakerID: 0, Vector: embedding})
		db.count = 1
		metrics.RecordSpeakerAssignment(string(DecisionNew))
		return 0, DecisionNew, nil
	}

	bestSim := -1.0
	bestID := -1
	for _, r := range db.records {
		sim := cosineSimilarity(embedding, r.Vector)
		if sim > bestSim {
			bestSim = sim
			bestID = r.SpeakerID
		}
	}

	if bestSim >= threshold {
		db.records = append(db.records, record{SpeakerID: bestID, Vector: embedding})
		metrics.RecordSpeakerAssignment(string(DecisionMatched))
		return bestID, DecisionMatched, nil
	}

	newID := db.count
	db.records = append(db.records, record{SpeakerID: newID, Vector: embedding})
	db.count++
	metrics.RecordSpeakerAssignment(string(DecisionNew))
	return newID, DecisionNew, nil
}

// Merge reassigns every embedding belonging to speaker b onto speaker a.
// Never runs during normal pipeline processing — only via the explicit
// `join` management command.
func (db *DB) Merge(a, b int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if a == b {
		return fmt.Errorf("speakerdb: cannot merge speaker %d into itself", a)
	}
	found := false
	for i := range db.records {
		if db.records[i].SpeakerID == b {
			db.records[i].SpeakerID = a
			found = true
		}
	}
	if !found {
		return fmt.Errorf("speakerdb: speaker %d has no embeddings", b)
	}
	slog.Info("speakerdb: merged speakers", "project", db.project, "from", b, "into", a)
	return nil
}

// ReassignmentPlanEntry describes one embedding's recomputed speaker under a
// new threshold, without mutating the database.
type ReassignmentPlanEntry struct {
	Index        int     `json:"index"`
	CurrentID    int     `json:"current_speaker_id"`
	ProposedID   int     `json:"proposed_speaker_id"`
	BestSimScore float64 `json:"best_similarity"`
}

// Recheck re-runs assignment for every stored embedding against a new
// threshold, in original insertion order, and returns the reassignment plan
// without mutating the database. The caller applies the plan explicitly
// (typically via Merge calls) once it has reviewed it.
func (db *DB) Recheck(newThreshold float64) []ReassignmentPlanEntry {
	db.mu.RLock()
	recs := make([]record, len(db.records))
	copy(recs, db.records)
	db.mu.RUnlock()

	var plan []ReassignmentPlanEntry
	var resolved []record // embeddings assigned so far under the new scheme

	for i, r := range recs {
		if len(resolved) == 0 {
			resolved = append(resolved, record{SpeakerID: 0, Vector: r.Vector})
			if r.SpeakerID != 0 {
				plan = append(plan, ReassignmentPlanEntry{Index: i, CurrentID: r.SpeakerID, ProposedID: 0, BestSimScore: 1})
			}
			continue
		}

		bestSim := -1.0
		bestID := -1
		for _, res := range resolved {
			sim := cosineSimilarity(r.Vector, res.Vector)
			if sim > bestSim {
				bestSim = sim
				bestID = res.SpeakerID
			}
		}

		var proposed int
		if bestSim >= newThreshold {
			proposed = bestID
		} else {
			maxID := -1
			for _, res := range resolved {
				if res.SpeakerID > maxID {
					maxID = res.SpeakerID
				}
			}
			proposed = maxID + 1
		}
		resolved = append(resolved, record{SpeakerID: proposed, Vector: r.Vector})

		if proposed != r.SpeakerID {
			plan = append(plan, ReassignmentPlanEntry{
				Index: i, CurrentID: r.SpeakerID, ProposedID: proposed, BestSimScore: bestSim,
			})
		}
	}
	return plan
}

// SpeakerCount returns the number of distinct speaker IDs currently stored.
func (db *DB) SpeakerCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	distinct := map[int]struct{}{}
	for _, r := range db.records {
		distinct[r.SpeakerID] = struct{}{}
	}
	return len(distinct)
}

// cosineSimilarity computes cos(theta) = (A.B) / (||A|| * ||B||), returning 0
// for mismatched dimensions or a zero vector rather than erroring — callers
// only ever use the result as a ranking signal.
func cosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrtNewton(normA) * sqrtNewton(normB))
}

// sqrtNewton computes a square root via Newton's method, mirroring the
// reference vector-index's dependency-free approach rather than pulling in
// math just for one call site.
func sqrtNewton(x float64) float64 {
	if x <= 0 {
		return 0
	}
	z := x
	for i := 0; i < 10; i++ {
		z = (z + x/z) / 2
	}
	return z
}
