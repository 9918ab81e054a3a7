package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID   contextKey = "request_id"
	ContextKeyPropertyRef contextKey = "property_ref"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithPropertyRef stores the caller's opaque property identifier.
func WithPropertyRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, ContextKeyPropertyRef, ref)
}

// PropertyRefFromContext extracts the property identifier from context
func PropertyRefFromContext(ctx context.Context) string {
	if ref, ok := ctx.Value(ContextKeyPropertyRef).(string); ok {
		return ref
	}
	return ""
}

// LoggerFrom decorates logger with the request ID carried by ctx, if any.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}
