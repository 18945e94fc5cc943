// Package export renders a split's fused segments as a human- or
// player-readable transcript, adapted from a standalone SRT/VTT formatting
// tool into a library the CLI's export command calls directly against the
// artifact store's model.Segment values instead of re-parsing them from
// disk in ASR-tool-specific formats.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/ppisljar/speech-dataset-creator/internal/model"
)

// Format is the closed set of transcript output formats.
type Format string

const (
	FormatText Format = "text"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// Write renders every good segment in segments as one transcript in the
// given format. Bad segments are skipped: a transcript export reflects what
// a listener should trust, not the raw fusion output.
func Write(w io.Writer, segments []model.Segment, format Format) error {
	if format == FormatVTT {
		fmt.Fprintln(w, "WEBVTT")
		fmt.Fprintln(w)
	}

	idx := int32(0)
	for _, seg := range segments {
		if seg.Status != model.SegStatusGood {
			continue
		}
		switch format {
		case FormatSRT:
			writeSRT(w, idx, seg.Main)
		case FormatVTT:
			writeVTT(w, seg.Main)
		case FormatText:
			fallthrough
		default:
			writeText(w, seg.Main)
		}
		idx++
	}
	return nil
}

func writeText(w io.Writer, r model.SegRange) {
	speaker := ""
	if r.SpeakerID >= 0 {
		speaker = fmt.Sprintf(" [speaker_%02d]", r.SpeakerID)
	}
	fmt.Fprintf(w, "[%s --> %s]%s %s\n", formatMS(r.StartMS, '.'), formatMS(r.EndMS, '.'), speaker, r.Text)
}

func writeSRT(w io.Writer, idx int32, r model.SegRange) {
	fmt.Fprintf(w, "%d\n", idx+1)
	fmt.Fprintf(w, "%s --> %s\n", formatMS(r.StartMS, ','), formatMS(r.EndMS, ','))
	fmt.Fprintf(w, "%s\n\n", r.Text)
}

func writeVTT(w io.Writer, r model.SegRange) {
	fmt.Fprintf(w, "%s --> %s\n", formatMS(r.StartMS, '.'), formatMS(r.EndMS, '.'))
	fmt.Fprintf(w, "%s\n\n", r.Text)
}

// formatMS renders a millisecond offset as HH:MM:SS<sep>mmm, sep being the
// fractional-seconds separator SRT (',') and everything else ('.') use.
func formatMS(ms int, sep byte) string {
	d := time.Duration(ms) * time.Millisecond
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	frac := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, frac)
}
