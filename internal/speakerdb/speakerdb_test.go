package speakerdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign_EmptyDBInsertsAsZero(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "speaker_db.json"))
	require.NoError(t, err)

	id, decision, err := db.Assign(Embedding{1, 0, 0}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Equal(t, DecisionNew, decision)
}

func TestAssign_IdenticalEmbeddingsMatchSameSpeaker(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "speaker_db.json"))
	require.NoError(t, err)

	id1, _, err := db.Assign(Embedding{1, 0, 0}, 0.6)
	require.NoError(t, err)
	id2, decision, err := db.Assign(Embedding{1, 0, 0}, 0.6)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Equal(t, DecisionMatched, decision)
	assert.Equal(t, 1, db.SpeakerCount())
}

func TestAssign_NPairwiseDissimilarEmbeddingsYieldNSpeakers(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "speaker_db.json"))
	require.NoError(t, err)

	orthogonal := []Embedding{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	for _, e := range orthogonal {
		_, _, err := db.Assign(e, 0.6)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, db.SpeakerCount())
}

func TestAssign_ThresholdIsStrictGreaterThan(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "speaker_db.json"))
	require.NoError(t, err)

	_, _, err = db.Assign(Embedding{1, 0}, 0.6)
	require.NoError(t, err)

	// cos(theta) between {1,0} and {0.6,0.8} is exactly 0.6 -- a similarity
	// equal to the threshold must NOT match, per the strict '>' semantics.
	id, decision, err := db.Assign(Embedding{0.6, 0.8}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, DecisionNew, decision)
	assert.Equal(t, 1, id)
}

func TestAssign_SpeakerDBReuseAcrossThresholds(t *testing.T) {
	// A stored speaker 0, and a new embedding whose cosine similarity to it
	// is 0.8, should match or not match depending on where the threshold
	// falls relative to that similarity.
	tau06 := filepath.Join(t.TempDir(), "db.json")
	db, err := Open("proj1", tau06)
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{1, 0}, 0.6)
	require.NoError(t, err)

	// sim({1,0},{0.8,0.6}) = 0.8
	id, decision, err := db.Assign(Embedding{0.8, 0.6}, 0.6)
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Equal(t, DecisionMatched, decision)
}

func TestAssign_HighThresholdRejectsSameClip(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{1, 0}, 0.9)
	require.NoError(t, err)

	id, decision, err := db.Assign(Embedding{0.8, 0.6}, 0.9)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Equal(t, DecisionNew, decision)
}

func TestSaveAndReopen_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	db, err := Open("proj1", path)
	require.NoError(t, err)

	_, _, err = db.Assign(Embedding{1, 0, 0}, 0.6)
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{0, 1, 0}, 0.6)
	require.NoError(t, err)
	require.NoError(t, db.Save())

	reopened, err := Open("proj1", path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.SpeakerCount())
}

func TestMerge_ReassignsEmbeddings(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)

	_, _, err = db.Assign(Embedding{1, 0, 0}, 0.99)
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{0, 1, 0}, 0.99)
	require.NoError(t, err)

	require.NoError(t, db.Merge(0, 1))

	plan := db.Recheck(0.99)
	_ = plan // merge already applied; recheck here just exercises the call path
}

func TestMerge_RejectsSelfMerge(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{1, 0}, 0.6)
	require.NoError(t, err)

	err = db.Merge(0, 0)
	assert.Error(t, err)
}

func TestRecheck_DoesNotMutateDB(t *testing.T) {
	db, err := Open("proj1", filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{1, 0}, 0.6)
	require.NoError(t, err)
	_, _, err = db.Assign(Embedding{0, 1}, 0.6)
	require.NoError(t, err)

	before := db.SpeakerCount()
	_ = db.Recheck(0.99)
	assert.Equal(t, before, db.SpeakerCount())
}
