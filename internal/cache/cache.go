// Package cache implements a tag-scoped read-through cache. Entries are JSON
// encoded, stored under a key with a set of tags, and evicted by tag when a
// mutation commits.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Cache collapses concurrent misses per key and refuses to store a value
// whose tags were invalidated while it was being computed.
type Cache struct {
	store  Store
	logger *slog.Logger
	tracer trace.Tracer

	flights singleflight.Group

	// mu orders stores against invalidations. A store holds it shared while
	// it compares generations and writes; Invalidate holds it exclusively
	// while it bumps generations.
	mu   sync.RWMutex
	gens map[string]uint64
}

// New creates a cache over store.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
		tracer: otel.Tracer("github.com/utafrali/QuaichGo/internal/cache"),
		gens:   make(map[string]uint64),
	}
}

// GetOrCompute returns the cached value for key, or runs compute, stores the
// result under key with tags for ttl, and returns it. A failing lookup is
// treated as a miss. Concurrent misses for the same key share one compute.
//
// compute runs on a context detached from ctx's cancellation: a caller that
// gives up gets ctx.Err() while the compute still fills the entry.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, tags []string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	kind := kindOf(key)

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		lookupsTotal.WithLabelValues(kind, "error").Inc()
		c.logger.WarnContext(ctx, "cache lookup failed, computing",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			lookupsTotal.WithLabelValues(kind, "hit").Inc()
			return v, nil
		}
		lookupsTotal.WithLabelValues(kind, "error").Inc()
		c.logger.WarnContext(ctx, "undecodable cache entry, computing",
			slog.String("key", key),
		)
	default:
		lookupsTotal.WithLabelValues(kind, "miss").Inc()
	}

	return load(ctx, c, key, tags, ttl, compute)
}

// Refresh skips the lookup, recomputes the value and repopulates the entry.
// Use it when the caller must observe its own just-committed write.
func Refresh[T any](ctx context.Context, c *Cache, key string, tags []string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	return load(ctx, c, key, tags, ttl, compute)
}

// Invalidate bumps the generation of each tag, so in-flight computes that
// started earlier will not be stored, then evicts the tags from the store.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}

	c.mu.Lock()
	for _, tag := range tags {
		c.gens[tag]++
	}
	c.mu.Unlock()

	for _, tag := range tags {
		invalidationsTotal.WithLabelValues(kindOf(tag)).Inc()
	}

	if err := c.store.InvalidateTags(ctx, tags...); err != nil {
		return fmt.Errorf("evict tags %s: %w", strings.Join(tags, ","), err)
	}
	return nil
}

func load[T any](ctx context.Context, c *Cache, key string, tags []string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	gens := c.snapshot(tags)
	flightKey := key + "@" + fingerprint(gens)

	ch := c.flights.DoChan(flightKey, func() (any, error) {
		return c.fill(context.WithoutCancel(ctx), key, tags, gens, ttl, func(ctx context.Context) ([]byte, error) {
			v, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(v)
		})
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		var v T
		if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
			return zero, fmt.Errorf("decode %s: %w", key, err)
		}
		return v, nil
	}
}

// fill runs encode and stores its output unless one of tags moved past gens.
func (c *Cache) fill(ctx context.Context, key string, tags []string, gens []uint64, ttl time.Duration, encode func(context.Context) ([]byte, error)) (data []byte, err error) {
	kind := kindOf(key)

	ctx, span := c.tracer.Start(ctx, "cache.compute", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.StringSlice("cache.tags", tags),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compute %s panicked: %v", key, r)
			data = nil
		}
		if err != nil {
			computesTotal.WithLabelValues(kind, "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	start := time.Now()
	data, err = encode(ctx)
	computeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.currentLocked(tags, gens) {
		computesTotal.WithLabelValues(kind, "skipped").Inc()
		span.SetAttributes(attribute.Bool("cache.stored", false))
		c.logger.DebugContext(ctx, "tags invalidated during compute, not storing",
			slog.String("key", key),
		)
		return data, nil
	}

	if err := c.store.Set(ctx, key, data, tags, ttl); err != nil {
		computesTotal.WithLabelValues(kind, "store_error").Inc()
		span.SetAttributes(attribute.Bool("cache.stored", false))
		c.logger.WarnContext(ctx, "cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return data, nil
	}

	computesTotal.WithLabelValues(kind, "stored").Inc()
	span.SetAttributes(attribute.Bool("cache.stored", true))
	return data, nil
}

func (c *Cache) snapshot(tags []string) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gens := make([]uint64, len(tags))
	for i, tag := range tags {
		gens[i] = c.gens[tag]
	}
	return gens
}

// currentLocked reports whether no tag was invalidated since gens was taken.
// Caller holds mu.
func (c *Cache) currentLocked(tags []string, gens []uint64) bool {
	for i, tag := range tags {
		if c.gens[tag] != gens[i] {
			return false
		}
	}
	return true
}

func fingerprint(gens []uint64) string {
	var b strings.Builder
	for i, g := range gens {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(g, 10))
	}
	return b.String()
}
