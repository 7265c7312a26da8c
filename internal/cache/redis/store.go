// Package redis is a cache store shared by every instance, backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultEntryPrefix namespaces entry keys.
	DefaultEntryPrefix = "cache:entry:"
	// DefaultTagPrefix namespaces the per-tag key sets.
	DefaultTagPrefix = "cache:tag:"
	// DefaultTagTTL bounds how long an untouched tag set lingers. It must
	// exceed the longest entry TTL.
	DefaultTagTTL = time.Hour
)

// evictTags deletes, for every tag set in KEYS, each entry it lists and then
// the set itself. Running it as one script keeps a concurrent Set from
// landing between reading a set and deleting it.
var evictTags = redis.NewScript(`
local removed = 0
for _, tagKey in ipairs(KEYS) do
	local members = redis.call('SMEMBERS', tagKey)
	for _, key in ipairs(members) do
		removed = removed + redis.call('DEL', ARGV[1] .. key)
	end
	redis.call('DEL', tagKey)
end
return removed
`)

// Store keeps each entry as a string key with a PX expiry and each tag as a
// set of entry keys.
type Store struct {
	client      redis.UniversalClient
	entryPrefix string
	tagPrefix   string
	tagTTL      time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPrefixes overrides the entry and tag key prefixes.
func WithPrefixes(entry, tag string) Option {
	return func(s *Store) {
		s.entryPrefix = entry
		s.tagPrefix = tag
	}
}

// WithTagTTL overrides DefaultTagTTL.
func WithTagTTL(d time.Duration) Option {
	return func(s *Store) { s.tagTTL = d }
}

// New creates a store on client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:      client,
		entryPrefix: DefaultEntryPrefix,
		tagPrefix:   DefaultTagPrefix,
		tagTTL:      DefaultTagTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the entry under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.entryPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Set writes the entry and adds key to each tag set in one MULTI block.
func (s *Store) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryPrefix+key, value, ttl)
		for _, tag := range tags {
			tagKey := s.tagPrefix + tag
			pipe.SAdd(ctx, tagKey, key)
			pipe.PExpire(ctx, tagKey, s.tagTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateTags deletes every entry listed under tags, and the tag sets.
func (s *Store) InvalidateTags(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = s.tagPrefix + tag
	}

	if err := evictTags.Run(ctx, s.client, keys, s.entryPrefix).Err(); err != nil {
		return fmt.Errorf("redis evict tags: %w", err)
	}
	return nil
}

// Ping checks connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
