// Package klog emits the bracketed debug lines the scheduler and
// filesystem cores produce verbatim, so a downstream test harness can
// scrape them. It plays the role a hal.Logger / services/logger pair
// plays for console diagnostics, collapsed to a direct call since this
// module has no concurrent kernel tasks to route log lines through.
package klog

import (
	"fmt"
	"io"
	"os"
)

// Mask selects which subsystems emit debug output, mirroring the CLI's
// `-d <mask>` flag and Nachos's per-flag dbgMp3/dbgFile/dbgSelf
// gating.
type Mask uint8

const (
	Scheduler Mask = 1 << iota
	FileSystem
	Self
)

// ParseMask turns a `-d` flag value into a Mask. Recognized letters: 'z'
// (scheduler [A]-[E] lines, named after Nachos's dbgMp3 flag), 'f'
// (filesystem), 's' (internal self-trace). '+' enables everything.
func ParseMask(flag string) Mask {
	var m Mask
	for _, r := range flag {
		switch r {
		case 'z':
			m |= Scheduler
		case 'f':
			m |= FileSystem
		case 's':
			m |= Self
		case '+':
			m = Scheduler | FileSystem | Self
		}
	}
	return m
}

// Logger writes gated debug lines to a sink.
type Logger struct {
	mask Mask
	out  io.Writer
}

// New returns a Logger writing to w, gated by mask.
func New(w io.Writer, mask Mask) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{mask: mask, out: w}
}

// Discard is a Logger that emits nothing, used when a caller passes a nil
// Logger.
func Discard() *Logger {
	return &Logger{mask: 0, out: io.Discard}
}

func (l *Logger) enabled(m Mask) bool {
	return l != nil && l.mask&m != 0
}

func (l *Logger) line(format string, args ...any) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Inserted emits the [A] queue-insertion line. Callers suppress this during
// aging re-insertion by simply not calling it.
func (l *Logger) Inserted(tick uint64, threadID int, queue string) {
	if !l.enabled(Scheduler) {
		return
	}
	l.line("[A] Tick [%d]: Thread [%d] is inserted into queue %s", tick, threadID, queue)
}

// Removed emits the [B] queue-removal line.
func (l *Logger) Removed(tick uint64, threadID int, queue string) {
	if !l.enabled(Scheduler) {
		return
	}
	l.line("[B] Tick [%d]: Thread [%d] is removed from queue %s", tick, threadID, queue)
}

// PriorityChanged emits the [C] aging-promotion line.
func (l *Logger) PriorityChanged(tick uint64, threadID, from, to int) {
	if !l.enabled(Scheduler) {
		return
	}
	l.line("[C] Tick [%d]: Thread [%d] changes its priority from [%d] to [%d]", tick, threadID, from, to)
}

// BurstUpdated emits the [D] burst-estimate-update line.
func (l *Logger) BurstUpdated(tick uint64, threadID int, old, burst, next float64) {
	if !l.enabled(Scheduler) {
		return
	}
	l.line("[D] Tick [%d]: Thread [%d] update approximate burst time, from [%.2f], add [%.2f], to [%.2f]", tick, threadID, old, burst, next)
}

// Dispatched emits the [E] dispatch line.
func (l *Logger) Dispatched(tick uint64, threadID, prevID, ranTicks int) {
	if !l.enabled(Scheduler) {
		return
	}
	l.line("[E] Tick [%d]: Thread [%d] is now selected for execution, thread [%d] is replaced, and it has executed [%d] ticks", tick, threadID, prevID, ranTicks)
}

// Trace emits an unstructured internal trace line, gated by Self — the
// equivalent of Nachos's dbgSelf category used for ad-hoc debugging.
func (l *Logger) Trace(format string, args ...any) {
	if !l.enabled(Self) {
		return
	}
	l.line(format, args...)
}

// FS emits an unstructured filesystem trace line, gated by FileSystem.
func (l *Logger) FS(format string, args ...any) {
	if !l.enabled(FileSystem) {
		return
	}
	l.line(format, args...)
}
