// Package simlog implements the single domain-log sink mandated by spec
// §4.7/§6: every emission is tagged with the simulation's elapsed time and
// written to the monitor, a file, or both, with concurrent writers
// serialized through one mutex.
package simlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Sink identifies where log lines are written.
type Sink int

const (
	Monitor Sink = iota + 1
	File
	Both
)

// Clock reports the simulation's elapsed time at the moment of emission.
type Clock interface {
	Elapsed() time.Duration
}

// RealClock measures elapsed time from the instant it is created,
// matching spec §3's monotonic-clock-per-run model.
type RealClock struct {
	start time.Time
}

// NewRealClock starts a clock running from now.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Logger is the single mutual-exclusion emission point for the domain log
// (spec §4.7). It never reorders lines relative to the instruction that
// caused them because callers invoke Log synchronously from the
// instruction handler itself — grounded on the teacher's terminal_output.go
// mutex-guarded single-writer sink.
type Logger struct {
	clock Clock
	sink  Sink

	monitor   io.Writer
	monitorTTY bool
	file      io.WriteCloser

	mu sync.Mutex
}

// New creates a Logger writing to the given sink. monitor is typically
// os.Stdout; file is opened by the caller (spec §6: "Log File Path"
// configuration keyword names the destination) and is only required when
// sink is File or Both.
func New(sink Sink, monitor io.Writer, file io.WriteCloser, clock Clock) *Logger {
	l := &Logger{clock: clock, sink: sink, monitor: monitor, file: file}
	if f, ok := monitor.(*os.File); ok {
		l.monitorTTY = term.IsTerminal(int(f.Fd()))
	}
	return l
}

// Log emits a line of the form "<elapsed> - <message>" to every
// destination named by the configured sink.
func (l *Logger) Log(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%0.3f - %s", l.clock.Elapsed().Seconds(), message)

	if l.sink == Monitor || l.sink == Both {
		fmt.Fprintln(l.monitor, line)
	}
	if l.sink == File || l.sink == Both {
		if l.file != nil {
			fmt.Fprintln(l.file, line)
		}
	}
}

// Errorf emits an error-tagged line. On a TTY monitor the "ERROR:" prefix
// is rendered in ANSI red; piped or file output stays plain, per the
// teacher's term.IsTerminal-gated coloring idiom (terminal_host.go).
func (l *Logger) Errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%0.3f - ERROR: %s", l.clock.Elapsed().Seconds(), msg)

	if l.sink == Monitor || l.sink == Both {
		if l.monitorTTY {
			fmt.Fprintf(l.monitor, "\x1b[31m%0.3f - ERROR:\x1b[0m %s\n", l.clock.Elapsed().Seconds(), msg)
		} else {
			fmt.Fprintln(l.monitor, line)
		}
	}
	if l.sink == File || l.sink == Both {
		if l.file != nil {
			fmt.Fprintln(l.file, line)
		}
	}
}

// Close releases the underlying file handle, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
