// Package memory is a process-local cache store with a reverse tag index.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	tags      []string
	expiresAt time.Time
}

// Store keeps entries in a map and, per tag, the set of keys carrying it, so
// evicting a tag touches only the entries under it.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	byTag   map[string]map[string]struct{}

	now           func() time.Time
	sweepInterval time.Duration
	lastSweep     time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for deterministic expiry in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSweepInterval sets how often Set purges expired entries.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepInterval = d }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:       make(map[string]entry),
		byTag:         make(map[string]map[string]struct{}),
		now:           time.Now,
		sweepInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// Get returns a copy of the value under key if it has not expired.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.removeLocked(key)
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set replaces the entry under key, re-indexing it under tags.
func (s *Store) Set(_ context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.sweepInterval {
		s.sweepLocked(now)
	}

	s.removeLocked(key)

	v := make([]byte, len(value))
	copy(v, value)
	t := make([]string, len(tags))
	copy(t, tags)

	s.entries[key] = entry{value: v, tags: t, expiresAt: now.Add(ttl)}
	for _, tag := range t {
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// InvalidateTags removes every entry indexed under any of tags.
func (s *Store) InvalidateTags(_ context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range tags {
		for key := range s.byTag[tag] {
			s.removeLocked(key)
		}
		delete(s.byTag, tag)
	}
	return nil
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// removeLocked drops key and unindexes it from each of its tags.
func (s *Store) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	for _, tag := range e.tags {
		keys := s.byTag[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byTag, tag)
		}
	}
}

func (s *Store) sweepLocked(now time.Time) {
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			s.removeLocked(key)
		}
	}
	s.lastSweep = now
}
