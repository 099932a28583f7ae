// Package output builds the terminal logger used by the CLI.
package output

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// NewLogger returns a slog logger backed by a charmbracelet handler writing to
// w. Verbose output drops to debug level and adds timestamps.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewHandler(w, verbose))
}

// NewHandler returns the charmbracelet logger as a slog.Handler.
func NewHandler(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		Prefix:          "routegen",
	})
}
