package eventlog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Egor213/JewelCRM/internal/domain"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (l *Logger) LogAPIRequest(ctx context.Context, method, path string, metadata map[string]any) {
	l.Info(ctx, fmt.Sprintf("API Request: %s %s", method, path), metadata)
}

// LogAPIResponse logs at error level for 5xx, warn for 4xx and info otherwise.
func (l *Logger) LogAPIResponse(ctx context.Context, method, path string, status int, duration time.Duration, metadata map[string]any) {
	level := domain.LevelInfo
	switch {
	case status >= http.StatusInternalServerError:
		level = domain.LevelError
	case status >= http.StatusBadRequest:
		level = domain.LevelWarn
	}

	meta := withValues(metadata, map[string]any{
		"statusCode": status,
		"durationMs": duration.Milliseconds(),
	})
	entry := l.newEntry(ctx, level, fmt.Sprintf("API Response: %s %s - %d", method, path, status), meta)
	entry.Duration = duration
	l.record(entry)
}

func (l *Logger) LogDatabaseOperation(ctx context.Context, operation, table string, duration time.Duration, err error, metadata map[string]any) {
	meta := withValues(metadata, map[string]any{
		"operation":  operation,
		"table":      table,
		"durationMs": duration.Milliseconds(),
	})

	if err != nil {
		entry := l.newEntry(ctx, domain.LevelError, fmt.Sprintf("Database operation failed: %s on %s", operation, table), meta)
		entry.Duration = duration
		entry.Error = captureError(err)
		l.record(entry)
		return
	}

	entry := l.newEntry(ctx, domain.LevelDebug, fmt.Sprintf("Database operation: %s on %s", operation, table), meta)
	entry.Duration = duration
	l.record(entry)
}

func (l *Logger) LogUserAction(ctx context.Context, action string, metadata map[string]any) {
	l.Info(ctx, "User action: "+action, metadata)
}

func (l *Logger) LogSecurityEvent(ctx context.Context, event string, severity Severity, metadata map[string]any) {
	level := domain.LevelWarn
	if severity == SeverityHigh || severity == SeverityCritical {
		level = domain.LevelError
	}
	l.Log(ctx, level, "Security event: "+event, withValues(metadata, map[string]any{
		"severity": string(severity),
	}))
}

func (l *Logger) LogBusinessEvent(ctx context.Context, event string, metadata map[string]any) {
	l.Info(ctx, "Business event: "+event, metadata)
}

// withValues returns a new map so the caller's metadata is never mutated.
func withValues(metadata, values map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+len(values))
	for k, v := range metadata {
		out[k] = v
	}
	for k, v := range values {
		out[k] = v
	}
	return out
}
