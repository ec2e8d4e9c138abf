// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithLead returns a logger with lead identity attached.
func (l *Logger) WithLead(leadID, name string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_id", leadID), slog.String("lead_name", name)),
	}
}

// CycleStart logs the beginning of a control-loop cycle.
func (l *Logger) CycleStart(cycle int64) {
	l.Info("cycle_start", slog.Int64("cycle", cycle))
}

// CycleEnd logs the end of a control-loop cycle.
func (l *Logger) CycleEnd(cycle int64, aged, discovered, dispatched int) {
	l.Info("cycle_end",
		slog.Int64("cycle", cycle),
		slog.Int("aged", aged),
		slog.Int("discovered", discovered),
		slog.Int("dispatched", dispatched),
	)
}

// GenerationFailure logs a failed draft generation attempt.
func (l *Logger) GenerationFailure(channel string, credential int, err error) {
	l.Warn("generation_failure",
		slog.String("channel", channel),
		slog.Int("credential", credential),
		slog.String("error", err.Error()),
	)
}

// DispatchResult logs the outcome of a budgeted dispatch run.
func (l *Logger) DispatchResult(queued, budget int) {
	l.Info("dispatch_result",
		slog.Int("queued", queued),
		slog.Int("budget", budget),
	)
}

// StateTransition logs a lifecycle state change.
func (l *Logger) StateTransition(leadID, from, to string) {
	l.Info("state_transition",
		slog.String("lead_id", leadID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}
