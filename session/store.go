package session

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// DefaultSessionID is used when callers do not name a session.
const DefaultSessionID = "default"

// ErrEmptySessionID is returned when an operation receives a blank session id.
var ErrEmptySessionID = errors.New("session: empty session id")

// Info summarizes a stored session.
type Info struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	LastActive   time.Time `json:"last_active"`
}

// Store persists ordered conversation messages keyed by session id.
type Store interface {
	// Append adds msg to the end of the session's history.
	Append(ctx context.Context, sessionID string, msg core.Message) error
	// Recent returns the last n messages, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]core.Message, error)
	// All returns the full history, oldest first.
	All(ctx context.Context, sessionID string) ([]core.Message, error)
	// Count returns the number of stored messages.
	Count(ctx context.Context, sessionID string) (int, error)
	// List returns every known session ordered by last activity, newest first.
	List(ctx context.Context) ([]Info, error)
	// Clear removes the session's history.
	Clear(ctx context.Context, sessionID string) error
}
