// Package drafts stores staged reservations between the intake and confirm steps.
package drafts

import (
	"context"
	"sync"
	"time"

	"github.com/example/akiya-reservations/internal/application"
)

// MemoryStore keeps drafts in process. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	draft     application.Draft
	expiresAt time.Time
}

// NewMemoryStore constructs an empty store. A nil clock uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, entries: make(map[string]memoryEntry)}
}

// Get returns the draft for token when present and unexpired.
func (s *MemoryStore) Get(ctx context.Context, token string) (application.Draft, bool, error) {
	if err := ctx.Err(); err != nil {
		return application.Draft{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return application.Draft{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, token)
		return application.Draft{}, false, nil
	}
	return entry.draft, true, nil
}

// Put replaces the draft for token.
func (s *MemoryStore) Put(ctx context.Context, token string, draft application.Draft, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.entries[token] = memoryEntry{draft: draft, expiresAt: now.Add(ttl)}
	return nil
}

// Delete removes the draft for token. Missing drafts are ignored.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
	return nil
}

// Len reports how many drafts are held, including expired ones not yet dropped.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
