// Package audit provides the bounded audit ledger recording every
// security-relevant operation in the module.
package audit

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// Context keys identifying the caller of an operation
const (
	KeyActorID   ContextKey = "actorId"   // user or service performing the operation
	KeySessionID ContextKey = "sessionId" // session the operation belongs to
)

// WithActor returns a context carrying the actor ID
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, KeyActorID, actorID)
}

// WithSession returns a context carrying the session ID
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, KeySessionID, sessionID)
}

// ActorFromContext extracts the actor ID, "system" when absent
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(KeyActorID).(string); ok && v != "" {
		return v
	}
	return "system"
}

// SessionFromContext extracts the session ID, empty when absent
func SessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(KeySessionID).(string); ok {
		return v
	}
	return ""
}
