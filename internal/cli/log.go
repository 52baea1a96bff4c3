// Package cli implements the engrave command-line interface.
//
// Commands read text notation or MIDI files, lay them out on a staff and
// write artifacts. The CLI is built using cobra; status output is styled
// with lipgloss and logging goes through charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - render: Parse, lay out and render a score (SVG, PNG, PDF, JSON, DOT)
//   - layout: Write the layout document without rendering
//   - visualize: Render a saved layout document
//   - import, scores: Add scores to the document store and manage them
//   - inspect: Browse measures and items interactively
//   - serve: Run the HTTP render service
//   - cache: Manage the pipeline cache
//
// # Configuration
//
// Settings are read from engrave.toml or ~/.config/engrave/config.toml
// (see the config package); flags override them.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// routes pipeline, cache and HTTP events to the log. Loggers are passed
// through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one pipeline stage for the log.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the time elapsed since the stage began, rounded to the
// millisecond, e.g. "Laid out 12 measures in 3 rows (41ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The logger can be retrieved later with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() when a command runs without one.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
