// Package breaker guards a cache store with a circuit breaker so a failing
// backend degrades to cache misses instead of slowing every request.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/QuaichGo/internal/cache"
)

// Config holds circuit breaker settings.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests calls were made.
	FailureRatio float64

	MinRequests uint32
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_breaker_state",
			Help: "Cache store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	shortCircuitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_breaker_short_circuits_total",
			Help: "Store calls skipped because the breaker was open, by operation.",
		},
		[]string{"name", "op"},
	)
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Store wraps a cache.Store. While the breaker is open, lookups report a miss
// and writes are skipped; invalidations fail so callers see that eviction did
// not happen.
type Store struct {
	next    cache.Store
	breaker *gobreaker.CircuitBreaker[any]
	name    string
}

// New wraps next with a breaker built from cfg.
func New(next cache.Store, cfg Config, logger *slog.Logger) *Store {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Store{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		name:    cfg.Name,
	}
}

// Get looks up key, reporting a miss when the breaker rejects the call.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	type result struct {
		value []byte
		ok    bool
	}

	res, err := s.breaker.Execute(func() (any, error) {
		v, ok, err := s.next.Get(ctx, key)
		return result{value: v, ok: ok}, err
	})
	if err != nil {
		if s.rejected(err, "get") {
			return nil, false, nil
		}
		return nil, false, err
	}
	r := res.(result)
	return r.value, r.ok, nil
}

// Set stores the entry, silently skipping it when the breaker is open.
func (s *Store) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.Set(ctx, key, value, tags, ttl)
	})
	if err != nil && s.rejected(err, "set") {
		return nil
	}
	return err
}

// InvalidateTags evicts tags. An open breaker is reported as an error.
func (s *Store) InvalidateTags(ctx context.Context, tags ...string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.next.InvalidateTags(ctx, tags...)
	})
	if err != nil && s.rejected(err, "invalidate") {
		return fmt.Errorf("cache store %s unavailable: %w", s.name, err)
	}
	return err
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.breaker.State()
}

func (s *Store) rejected(err error, op string) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		shortCircuitsTotal.WithLabelValues(s.name, op).Inc()
		return true
	}
	return false
}
