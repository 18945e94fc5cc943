package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestLogExecution_SuccessRecordsResultSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path)

	l.LogExecution(Entry{
		Project: "proj1", File: "episode1", SplitIndex: 0,
		Operator: "denoise", Command: "ffmpeg", Args: []string{"-i", "in.wav"},
		ExitCode: 0, DurationMs: 120,
	})

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "success", rec["result"])
	assert.Equal(t, "denoise", rec["operator"])
}

func TestLogExecution_NonZeroExitRecordsResultFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path)

	l.LogExecution(Entry{Operator: "transcribe", Command: "python", ExitCode: 1})

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "failed", rec["result"])
}

func TestLogRejection_RecordsResultRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := New(path)

	l.LogRejection("proj1", "episode1", "denoise", "ffmpeg", []string{"-i", "../etc/passwd"}, "dangerous characters")

	lines := readLines(t, path)
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "rejected", rec["result"])
	assert.Equal(t, "dangerous characters", rec["rejection_reason"])
}
