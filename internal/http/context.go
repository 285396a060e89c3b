package http

import (
	"context"
	"log/slog"

	"github.com/example/cleaning-roster/internal/logging"
)

type contextKey string

const (
	instanceIDContextKey contextKey = "instance_id"
	templateIDContextKey contextKey = "template_id"
)

// ContextWithLogger returns a derived context carrying the request-scoped
// logger. The same context slot feeds the service and repository logs, so
// request attributes follow the call all the way down.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithInstanceID injects the cleaning identifier resolved from the
// request path.
func ContextWithInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, instanceIDContextKey, id)
}

// InstanceIDFromContext extracts a cleaning identifier previously associated
// with the context.
func InstanceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(instanceIDContextKey).(string)
	return id, ok
}

// ContextWithTemplateID injects the template identifier resolved from the
// request path.
func ContextWithTemplateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, templateIDContextKey, id)
}

// TemplateIDFromContext extracts a template identifier previously associated
// with the context.
func TemplateIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(templateIDContextKey).(string)
	return id, ok
}
