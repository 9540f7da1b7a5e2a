package http

import (
	"context"
	"log/slog"

	"github.com/example/mentor-scheduler/internal/logging"
)

type contextKey string

const (
	mentorIDContextKey  contextKey = "mentor_id"
	sessionIDContextKey contextKey = "session_id"
)

// ContextWithMentorID injects the mentor identifier resolved from the request path.
func ContextWithMentorID(ctx context.Context, mentorID string) context.Context {
	return context.WithValue(ctx, mentorIDContextKey, mentorID)
}

// MentorIDFromContext extracts a mentor identifier previously associated with the context.
func MentorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(mentorIDContextKey).(string)
	return id, ok
}

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts a request scoped logger, if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
