// Package service holds the business logic of the tasting service: results
// aggregation, cached reads, and the mutations that invalidate them.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/utafrali/QuaichGo/internal/domain"
)

// CacheTTL holds the time-to-live of each cached read model.
type CacheTTL struct {
	Results   time.Duration
	Aggregate time.Duration
	Metadata  time.Duration
}

// DefaultCacheTTL returns the TTLs used when none are configured.
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		Results:   30 * time.Second,
		Aggregate: 30 * time.Second,
		Metadata:  60 * time.Second,
	}
}

// EventPublisher publishes domain events after a mutation commits. Publishing
// is best effort: failures are logged and never fail the mutation.
type EventPublisher interface {
	PublishVoteCast(ctx context.Context, meetingID string, vote *domain.Vote) error
	PublishVoteUpdated(ctx context.Context, meetingID string, vote *domain.Vote) error
	PublishMeetingClosed(ctx context.Context, meeting *domain.Meeting) error
}

// logInvalidationError records a failed cache invalidation. The mutation has
// committed, so the caller still reports success.
func logInvalidationError(ctx context.Context, logger *slog.Logger, op string, err error) {
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, "cache invalidation failed after commit",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
