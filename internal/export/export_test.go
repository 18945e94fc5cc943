package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

func sampleSegments() []model.Segment {
	return []model.Segment{
		{SegIndex: 0, Status: model.SegStatusGood, Main: model.SegRange{StartMS: 0, EndMS: 1500, SpeakerID: 0, Text: "hello there"}},
		{SegIndex: 1, Status: model.SegStatusBad, Main: model.SegRange{StartMS: 1500, EndMS: 2000, SpeakerID: 0, Text: "garbled"}},
		{SegIndex: 2, Status: model.SegStatusGood, Main: model.SegRange{StartMS: 2000, EndMS: 4250, SpeakerID: 1, Text: "how are you"}},
	}
}

func TestWrite_TextSkipsBadSegments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSegments(), FormatText))
	out := buf.String()
	assert.Contains(t, out, "hello there")
	assert.Contains(t, out, "how are you")
	assert.NotContains(t, out, "garbled")
}

func TestWrite_SRTNumbersOnlyGoodSegments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSegments(), FormatSRT))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "1\n"))
	assert.Contains(t, out, "00:00:00,000 --> 00:00:01,500")
	assert.Contains(t, out, "2\n")
}

func TestWrite_VTTHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSegments(), FormatVTT))
	assert.True(t, strings.HasPrefix(buf.String(), "WEBVTT\n\n"))
}
