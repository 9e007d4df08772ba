package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

// InMemoryStore is a volatile Store keeping histories in a process local
// map. It is safe for concurrent access. Returned slices are copies, so
// callers can never mutate stored history.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*history
	now      func() time.Time
}

type history struct {
	messages   []core.Message
	lastActive time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*history), now: time.Now}
}

// Append adds msg to the session, creating the session lazily.
func (s *InMemoryStore) Append(ctx context.Context, sessionID string, msg core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.getOrCreateLocked(sessionID)
	h.messages = append(h.messages, msg)
	h.lastActive = s.now()
	return nil
}

// Recent returns up to n of the latest messages in chronological order.
func (s *InMemoryStore) Recent(ctx context.Context, sessionID string, n int) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return []core.Message{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		return []core.Message{}, nil
	}
	start := len(h.messages) - n
	if start < 0 {
		start = 0
	}
	return core.CloneMessages(h.messages[start:]), nil
}

// All returns a copy of the session history.
func (s *InMemoryStore) All(ctx context.Context, sessionID string) ([]core.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		return []core.Message{}, nil
	}
	return core.CloneMessages(h.messages), nil
}

// Count returns the number of messages stored for the session.
func (s *InMemoryStore) Count(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.sessions[sessionID]; ok {
		return len(h.messages), nil
	}
	return 0, nil
}

// List returns all sessions, most recently active first.
func (s *InMemoryStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Info, 0, len(s.sessions))
	for id, h := range s.sessions {
		out = append(out, Info{ID: id, MessageCount: len(h.messages), LastActive: h.lastActive})
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out, nil
}

// Clear drops the session entirely.
func (s *InMemoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// getOrCreateLocked returns the session history; caller must hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(sessionID string) *history {
	h, ok := s.sessions[sessionID]
	if !ok {
		h = &history{}
		s.sessions[sessionID] = h
	}
	return h
}
