package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diar.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestParseDiarizationCSV_SkipsHeaderRow(t *testing.T) {
	path := writeCSV(t, "speaker,start,end\nL1,0.000,1.500\nL2,1.500,3.000\n")
	track, err := parseDiarizationCSV(path)
	require.NoError(t, err)
	require.Len(t, track, 2)
	assert.Equal(t, "L1", track[0].SpeakerLabel)
	assert.Equal(t, 1.5, track[0].EndS)
}

func TestParseDiarizationCSV_HandlesMissingHeader(t *testing.T) {
	path := writeCSV(t, "L1,0.000,1.500\n")
	track, err := parseDiarizationCSV(path)
	require.NoError(t, err)
	require.Len(t, track, 1)
}

func TestParseDiarizationCSV_SkipsMalformedRows(t *testing.T) {
	path := writeCSV(t, "speaker,start,end\nL1,notanumber,1.500\nL2,1.500,3.000\n")
	track, err := parseDiarizationCSV(path)
	require.NoError(t, err)
	require.Len(t, track, 1)
	assert.Equal(t, "L2", track[0].SpeakerLabel)
}

func TestParseDiarizationCSV_EmptyFileYieldsEmptyTrack(t *testing.T) {
	path := writeCSV(t, "")
	track, err := parseDiarizationCSV(path)
	require.NoError(t, err)
	assert.Empty(t, track)
}
