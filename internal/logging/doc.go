// Package logging provides structured logging for the imagegen client and gateway.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across the module: plain leveled messages, HTTP
// request/response lines, and upstream call summaries.
//
// # Log Levels
//
//   - Debug: request payload sizes, state transitions, poll ticks
//   - Info: generation requests, endpoint switches, gateway lifecycle
//   - Warn: unavailable backends, subscriber panics, rejected input
//   - Error: failed requests, startup failures
//
// # Silent by Default
//
// The terminal client must not print log lines over its own output, so the
// logger is a no-op unless a level is given explicitly or through
// IMAGEGEN_LOG_LEVEL. When the TUI is running, pass an output path so that
// log lines go to a file instead of the terminal:
//
//	if err := logging.InitializeWithOutput("debug", "/tmp/imagegen.log"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Generation finished",
//	    zap.String("request_id", id),
//	    zap.Int("results", len(result.VectorResult)),
//	)
//
// All functions are safe for concurrent use.
package logging
