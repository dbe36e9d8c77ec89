// Package log provides the diagnostic sink used throughout the tracer core.
package log

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Record is a single logged diagnostic.
type Record struct {
	Message string
}

// Logger is an append-only diagnostic sink. The tracer core never panics or
// returns an error for a condition it can instead report here.
type Logger interface {
	Log(msg string)
}

var (
	mu     sync.RWMutex
	active Logger = &stdLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
)

// UseLogger installs l as the active logger for the process.
func UseLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	active = l
}

// Debug logs a debug-level diagnostic.
func Debug(format string, a ...interface{}) { printMsg("DEBUG", format, a...) }

// Warn logs a warning diagnostic.
func Warn(format string, a ...interface{}) { printMsg("WARN", format, a...) }

// Error logs an error diagnostic.
func Error(format string, a ...interface{}) { printMsg("ERROR", format, a...) }

func printMsg(lvl, format string, a ...interface{}) {
	msg := fmt.Sprintf("tracelink %s: %s", lvl, fmt.Sprintf(format, a...))
	mu.RLock()
	l := active
	mu.RUnlock()
	l.Log(msg)
}

type stdLogger struct{ l *log.Logger }

func (p *stdLogger) Log(msg string) { p.l.Print(msg) }

// NewStdLogger returns a fresh Logger writing to stderr with the standard
// library's default flags, independent of the process-wide active logger.
// Components that take a Logger as a constructor parameter (rather than
// using the package-level Debug/Warn/Error helpers) default to one of these.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "[tracelink] ", log.LstdFlags)}
}

// RecordLogger is a test double which records every message logged to it.
type RecordLogger struct {
	mu      sync.Mutex
	records []Record
}

// Log appends msg to the recorded log.
func (r *RecordLogger) Log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, Record{Message: msg})
}

// Records returns a copy of every message logged so far.
func (r *RecordLogger) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Reset clears the recorded messages.
func (r *RecordLogger) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
