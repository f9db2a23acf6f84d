// Package telemetry defines the audit event stream emitted by the auth
// endpoints. Events are best-effort; losing one never fails a request.
package telemetry

import (
	"context"
	"time"
)

// Event records a single authentication attempt.
type Event struct {
	Operation string // signup, signin, refresh, google
	Outcome   string // ok, rejected, error
	UserID    string
	SessionID string
	IPAddress string
	CreatedAt time.Time
}

// EventEmitter delivers auth events to a backend.
type EventEmitter interface {
	Emit(ctx context.Context, event Event) error
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, Event) error { return nil }
