package silence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

func TestParseFFmpegOutput_ExtractsCompleteIntervals(t *testing.T) {
	out := `
[silencedetect @ 0x1234] silence_start: 0.5
[silencedetect @ 0x1234] silence_end: 0.6 | silence_duration: 0.1
[silencedetect @ 0x1234] silence_start: 2.0
[silencedetect @ 0x1234] silence_end: 2.3 | silence_duration: 0.3
`
	got := ParseFFmpegOutput(out)
	want := model.SilenceMap{
		{StartMS: 500, EndMS: 600},
		{StartMS: 2000, EndMS: 2300},
	}
	assert.Equal(t, want, got)
}

func TestParseFFmpegOutput_DropsTrailingUnterminatedStart(t *testing.T) {
	out := `
[silencedetect @ 0x1234] silence_start: 0.5
[silencedetect @ 0x1234] silence_end: 0.6 | silence_duration: 0.1
[silencedetect @ 0x1234] silence_start: 5.0
`
	got := ParseFFmpegOutput(out)
	assert.Len(t, got, 1)
}

func TestParseFFmpegOutput_NoSilenceReturnsEmpty(t *testing.T) {
	got := ParseFFmpegOutput("no silence markers here")
	assert.Empty(t, got)
}
