// Package cli implements the taskgraph command-line interface.
//
// Commands read a project either from a graph JSON file or, with
// --project, from the store named in the configuration file. The CLI is
// built using cobra and supports verbose logging via the charmbracelet/log
// library.
//
// # Commands
//
// The main commands are:
//   - validate: Check a proposed dependency against the policy
//   - layout, critical, stats: Compute levels, positions, the critical path and statistics
//   - scan: Audit stored records for integrity issues
//   - render: Generate JSON, DOT or SVG output
//   - edit: Link and unlink prerequisites interactively
//   - import, serve: Load graph files into the store and serve the HTTP API
//   - cache: Manage the local view cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The edit
// session passes its logger through context.Context to background commits.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of a step with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at debug level with the elapsed time appended to keyvals,
// e.g. "computed layout tasks=12 elapsed=3ms".
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Debug(msg, keyvals...)
}

type ctxKey struct{}

// withLogger attaches l to ctx for code that runs detached from the CLI,
// such as background commits of the edit session.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
