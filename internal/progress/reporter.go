// Package progress implements the progress reporter (C8): a small
// terminal UI with a static header of nested counters (overall, file,
// split, intra-stage step) and a scrolling log region beneath it. Log
// writes are serialized through a single consumer goroutine so producers
// never block on rendering and concurrent log emission never clobbers the
// header.
//
// No third-party TUI/progress-bar library appears anywhere in the example
// corpus this was grounded on, so this stays on the standard library
// (os.Stdout plus ANSI cursor-movement escapes) rather than introducing an
// unrelated dependency for a single, narrow concern.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Counters is the four nested counters the header displays.
type Counters struct {
	OverallStep, OverallTotal int
	File                      string
	Split, SplitTotal         int
	Stage                     string
	StageStep, StageTotal     int
}

// Reporter owns the terminal output surface. Construct with New and always
// call Close to flush and release it, even on cancellation.
type Reporter struct {
	out      io.Writer
	mu       sync.Mutex
	counters Counters
	logLines chan string
	done     chan struct{}
	headerOn bool
}

// New creates a Reporter writing to out. If headerEnabled is false (e.g.
// non-TTY/CI contexts), it degrades to plain sequential log lines with no
// redrawn header region.
func New(out io.Writer, headerEnabled bool) *Reporter {
	r := &Reporter{
		out:      out,
		logLines: make(chan string, 256),
		done:     make(chan struct{}),
		headerOn: headerEnabled,
	}
	go r.consume()
	return r
}

// consume is the single log consumer: it serializes every write to the
// output surface so producers never need their own lock around the writer.
func (r *Reporter) consume() {
	for line := range r.logLines {
		r.mu.Lock()
		if r.headerOn {
			fmt.Fprint(r.out, "\033[s") // save cursor
		}
		fmt.Fprintln(r.out, line)
		if r.headerOn {
			r.renderHeaderLocked()
			fmt.Fprint(r.out, "\033[u") // restore cursor
		}
		r.mu.Unlock()
	}
	close(r.done)
}

// Log enqueues a log line. Never blocks on rendering; if the buffer is
// full the producer blocks briefly on the channel send, never on terminal
// I/O directly.
func (r *Reporter) Log(format string, args ...interface{}) {
	select {
	case r.logLines <- fmt.Sprintf(format, args...):
	default:
		// Buffer momentarily full: fall back to a direct, unbuffered send
		// rather than drop the line.
		r.logLines <- fmt.Sprintf(format, args...)
	}
}

// SetCounters updates the header's nested counters. Safe for concurrent
// use; the next log line (or an explicit Refresh) redraws the header.
func (r *Reporter) SetCounters(c Counters) {
	r.mu.Lock()
	r.counters = c
	r.mu.Unlock()
}

// Refresh redraws the header immediately, independent of log activity.
func (r *Reporter) Refresh() {
	if !r.headerOn {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, "\033[s")
	r.renderHeaderLocked()
	fmt.Fprint(r.out, "\033[u")
}

func (r *Reporter) renderHeaderLocked() {
	c := r.counters
	line := fmt.Sprintf("[%d/%d] file=%s split=%d/%d stage=%s (%d/%d)",
		c.OverallStep, c.OverallTotal, c.File, c.Split, c.SplitTotal, c.Stage, c.StageStep, c.StageTotal)
	fmt.Fprintln(r.out, strings.Repeat("-", len(line)))
	fmt.Fprintln(r.out, line)
}

// Close flushes pending log lines and releases the output surface. Safe to
// call once; called on normal completion, cancellation, or timeout.
func (r *Reporter) Close() {
	close(r.logLines)
	<-r.done
}

// NewDefault creates a Reporter writing to stdout with the header enabled
// only when stdout looks like a terminal.
func NewDefault() *Reporter {
	isTTY := false
	if fi, err := os.Stdout.Stat(); err == nil {
		isTTY = (fi.Mode() & os.ModeCharDevice) != 0
	}
	return New(os.Stdout, isTTY)
}
