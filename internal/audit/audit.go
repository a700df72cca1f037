// Package audit defines the event-log collaborator interface the pipeline
// reports to. The pipeline calls the sink but owns none of its state; the
// default implementation just writes structured log records.
package audit

import (
	"context"
	"log/slog"
)

// Identity is the session identity attached to audit events, provided by
// the authentication collaborator.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

type identityKey struct{}

// WithIdentity attaches a session identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the session identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Sink accepts audit events.
type Sink interface {
	Record(ctx context.Context, action, details, level string)
}

// SlogSink writes audit events to the structured log.
type SlogSink struct {
	Logger *slog.Logger
}

// Record implements Sink.
func (s *SlogSink) Record(ctx context.Context, action, details, level string) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		slog.String("action", action),
		slog.String("details", details),
	}
	if id, ok := IdentityFromContext(ctx); ok {
		attrs = append(attrs,
			slog.String("user_id", id.UserID),
			slog.String("username", id.Username),
			slog.String("email", id.Email))
	}

	switch level {
	case "ERROR":
		logger.ErrorContext(ctx, "audit event", attrs...)
	case "WARN":
		logger.WarnContext(ctx, "audit event", attrs...)
	default:
		logger.InfoContext(ctx, "audit event", attrs...)
	}
}

// Discard is a Sink that drops every event; useful in tests.
type Discard struct{}

func (Discard) Record(context.Context, string, string, string) {}
