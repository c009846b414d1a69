// Package logging provides structured logging configuration using log/slog.
//
// This package integrates with chi's RequestID middleware to propagate
// request IDs through structured log entries, enabling request tracing
// across the entire request lifecycle.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	slogseq "github.com/sokkalf/slog-seq"
)

// Setup configures the global slog logger based on level and format, and
// returns a function that flushes and closes any remote sink.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
//
// When seqURL is non-empty, records are also shipped to that Seq server.
func Setup(level, format, seqURL string) func() {
	handler, cleanup := NewHandler(os.Stdout, level, format, seqURL)
	slog.SetDefault(slog.New(handler))
	return cleanup
}

// NewHandler builds the console handler writing to w, fanned out to a Seq
// handler when seqURL is set. The returned cleanup is never nil.
func NewHandler(w io.Writer, level, format, seqURL string) (slog.Handler, func()) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var console slog.Handler
	if strings.ToLower(format) == "json" {
		console = slog.NewJSONHandler(w, opts)
	} else {
		console = slog.NewTextHandler(w, opts)
	}

	if seqURL == "" {
		return console, func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(50),
		slogseq.WithFlushInterval(2*time.Second),
		slogseq.WithHandlerOptions(opts),
	)
	if seqHandler == nil {
		return console, func() {}
	}

	return &multiHandler{handlers: []slog.Handler{console, seqHandler}}, func() {
		seqHandler.Close()
	}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID,
// the returned logger automatically includes request_id in all log entries.
// This enables correlation of all log entries for a single request.
//
// Usage:
//
//	func handleRequest(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("inspecting upload", "file", header.Filename)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step process.
//
// Usage:
//
//	runLogger := logging.WithFields(ctx,
//	    "run_id", runID,
//	    "primary_file", req.Primary.Name,
//	)
//	runLogger.Info("merge started")
//	// ... later ...
//	runLogger.Info("merge completed", "rows", result.OutputRows)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
