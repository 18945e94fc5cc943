package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

func TestStart_RejectsDuplicateProcessing(t *testing.T) {
	r := New()
	key := Key("proj1", "file1")

	require.NoError(t, r.Start(key))
	err := r.Start(key)
	assert.Error(t, err)
	assert.IsType(t, ErrAlreadyProcessing{}, err)
}

func TestStart_AllowsRestartAfterFinish(t *testing.T) {
	r := New()
	key := Key("proj1", "file1")

	require.NoError(t, r.Start(key))
	r.Finish(key, model.JobCompleted, "done")
	assert.NoError(t, r.Start(key))
}

func TestUpdate_TracksProgress(t *testing.T) {
	r := New()
	key := Key("proj1", "file1")
	require.NoError(t, r.Start(key))

	r.Update(key, 42, "transcribing", "transcribe")

	status, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, 42, status.Progress)
	assert.Equal(t, "transcribe", status.Stage)
}

func TestFinish_SetsCompletedProgressTo100(t *testing.T) {
	r := New()
	key := Key("proj1", "file1")
	require.NoError(t, r.Start(key))
	r.Update(key, 50, "midway", "segment")

	r.Finish(key, model.JobCompleted, "all done")

	status, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, model.JobCompleted, status.State)
	assert.Equal(t, 100, status.Progress)
}

func TestSnapshot_ReturnsDefensiveCopy(t *testing.T) {
	r := New()
	key := Key("proj1", "file1")
	require.NoError(t, r.Start(key))

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	snap[0].Progress = 999

	status, _ := r.Get(key)
	assert.NotEqual(t, 999, status.Progress)
}

func TestExportKey_UsesSentinelFormat(t *testing.T) {
	assert.Equal(t, "myproj_export", ExportKey("myproj"))
}
