// Package report carries structured diagnostics from collection builds to the
// user.
package report

import (
	"log/slog"
	"sync"
)

// Diagnostic codes. PrefixID namespaces them.
const (
	CodeCollectionBuilder = "12106"
	CodeGeneratePath      = "12107"
	CodeCollectionPath    = "12108"
	CodeResultShape       = "12111"
)

const idPrefix = "routegen_"

// PrefixID returns the namespaced form of a diagnostic code.
func PrefixID(code string) string {
	return idPrefix + code
}

// Report is one structured diagnostic.
type Report struct {
	ID            string
	SourceMessage string
	FilePath      string
}

// Reporter receives build diagnostics.
type Reporter interface {
	Verbose(msg string)
	Warn(msg string)
	Error(r Report)
	// PanicOnBuild marks the build as failed without stopping the process.
	PanicOnBuild(r Report)
}

// LogReporter writes diagnostics to a slog logger and counts build failures.
type LogReporter struct {
	logger *slog.Logger

	mu       sync.Mutex
	errors   int
	failures []Report
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Verbose(msg string) { r.logger.Debug(msg) }

func (r *LogReporter) Warn(msg string) { r.logger.Warn(msg) }

func (r *LogReporter) Error(rep Report) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
	r.logger.Error(rep.SourceMessage, attrs(rep)...)
}

func (r *LogReporter) PanicOnBuild(rep Report) {
	r.mu.Lock()
	r.failures = append(r.failures, rep)
	r.mu.Unlock()
	r.logger.Error(rep.SourceMessage, append(attrs(rep), "fatal", true)...)
}

// Errors returns how many recoverable errors were reported.
func (r *LogReporter) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Failures returns the PanicOnBuild reports received so far.
func (r *LogReporter) Failures() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.failures...)
}

// Reset clears the counters. develop calls it after every rebuild.
func (r *LogReporter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = 0
	r.failures = nil
}

func attrs(rep Report) []any {
	out := []any{"id", rep.ID}
	if rep.FilePath != "" {
		out = append(out, "file", rep.FilePath)
	}
	return out
}
