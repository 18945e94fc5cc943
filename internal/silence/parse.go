// Package silence parses ffmpeg's silencedetect filter output into the
// silence map the fusion engine consults.
package silence

import (
	"regexp"
	"strconv"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

var (
	startRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	endRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// ParseFFmpegOutput extracts [start_ms,end_ms) intervals from the stderr
// text ffmpeg's silencedetect filter writes, one silence_start/silence_end
// pair per detected interval. A trailing silence_start with no matching
// silence_end (stream ended while still silent) is dropped — the fusion
// engine only needs intervals with a known end.
func ParseFFmpegOutput(output string) model.SilenceMap {
	starts := startRe.FindAllStringSubmatch(output, -1)
	ends := endRe.FindAllStringSubmatch(output, -1)

	n := len(starts)
	if len(ends) < n {
		n = len(ends)
	}

	out := make(model.SilenceMap, 0, n)
	for i := 0; i < n; i++ {
		startS, err1 := strconv.ParseFloat(starts[i][1], 64)
		endS, err2 := strconv.ParseFloat(ends[i][1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, model.SilenceInterval{
			StartMS: int(startS * 1000),
			EndMS:   int(endS * 1000),
		})
	}
	return out
}
