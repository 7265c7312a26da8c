package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Broadcaster forwards evicted tags to other instances sharing the service.
type Broadcaster interface {
	BroadcastInvalidation(ctx context.Context, tags []string) error
}

// Dispatcher maps committed mutations to the tags they invalidate. Callers
// invoke it synchronously after commit and before responding.
type Dispatcher struct {
	cache       *Cache
	broadcaster Broadcaster
	logger      *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBroadcaster publishes every local invalidation through b.
func WithBroadcaster(b Broadcaster) DispatcherOption {
	return func(d *Dispatcher) { d.broadcaster = b }
}

// NewDispatcher creates a dispatcher evicting from c.
func NewDispatcher(c *Cache, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{cache: c, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// VoteChanged invalidates what a cast or edited vote on whisky in meeting
// affects.
func (d *Dispatcher) VoteChanged(ctx context.Context, meetingID, whiskyID string) error {
	return d.Invalidate(ctx, MeetingResultsTag(meetingID), WhiskyTag(whiskyID), ReviewsTag)
}

// WhiskyChanged invalidates what creating or editing whisky affects.
func (d *Dispatcher) WhiskyChanged(ctx context.Context, meetingID, whiskyID string) error {
	return d.InvalidateWhisky(ctx, meetingID, whiskyID)
}

// WhiskyRemoved invalidates what deleting whisky affects. The meeting entry
// is included because the removed whisky may have been its quaich.
func (d *Dispatcher) WhiskyRemoved(ctx context.Context, meetingID, whiskyID string) error {
	return d.Invalidate(ctx, MeetingWhiskiesTag(meetingID), WhiskyTag(whiskyID), MeetingResultsTag(meetingID), MeetingTag(meetingID))
}

// MeetingChanged invalidates what closing or editing a meeting affects. The
// whisky list is included because it carries the quaich flag.
func (d *Dispatcher) MeetingChanged(ctx context.Context, meetingID string) error {
	return d.Invalidate(ctx, MeetingTag(meetingID), MeetingResultsTag(meetingID), MeetingWhiskiesTag(meetingID))
}

// MemberChanged invalidates what creating, editing or removing a member affects.
func (d *Dispatcher) MemberChanged(ctx context.Context) error {
	return d.InvalidateMembers(ctx)
}

// InvalidateMeetingResults evicts a meeting's aggregated results.
func (d *Dispatcher) InvalidateMeetingResults(ctx context.Context, meetingID string) error {
	return d.Invalidate(ctx, MeetingResultsTag(meetingID))
}

// InvalidateWhisky evicts a whisky, its meeting's whisky list and results.
func (d *Dispatcher) InvalidateWhisky(ctx context.Context, meetingID, whiskyID string) error {
	return d.Invalidate(ctx, MeetingWhiskiesTag(meetingID), WhiskyTag(whiskyID), MeetingResultsTag(meetingID))
}

// InvalidateMeeting evicts a meeting's metadata and results.
func (d *Dispatcher) InvalidateMeeting(ctx context.Context, meetingID string) error {
	return d.Invalidate(ctx, MeetingTag(meetingID), MeetingResultsTag(meetingID))
}

// InvalidateMembers evicts every cached member list.
func (d *Dispatcher) InvalidateMembers(ctx context.Context) error {
	return d.Invalidate(ctx, MembersTag)
}

// InvalidateReviews evicts every view derived from individual votes.
func (d *Dispatcher) InvalidateReviews(ctx context.Context) error {
	return d.Invalidate(ctx, ReviewsTag)
}

// Invalidate evicts tags locally and, when a broadcaster is configured,
// publishes them to other instances. Failures are logged, counted and
// returned; the broadcast is attempted even if the local eviction failed.
func (d *Dispatcher) Invalidate(ctx context.Context, tags ...string) error {
	localErr := d.InvalidateLocal(ctx, tags...)

	if d.broadcaster == nil {
		return localErr
	}

	if err := d.broadcaster.BroadcastInvalidation(ctx, tags); err != nil {
		invalidationFailuresTotal.Inc()
		d.logger.ErrorContext(ctx, "cache invalidation broadcast failed",
			slog.String("tags", strings.Join(tags, ",")),
			slog.String("error", err.Error()),
		)
		return errors.Join(localErr, err)
	}
	return localErr
}

// InvalidateLocal evicts tags from this instance's cache only. The broadcast
// consumer uses it so received invalidations are not re-published.
func (d *Dispatcher) InvalidateLocal(ctx context.Context, tags ...string) error {
	if err := d.cache.Invalidate(ctx, tags...); err != nil {
		invalidationFailuresTotal.Inc()
		d.logger.ErrorContext(ctx, "cache invalidation failed",
			slog.String("tags", strings.Join(tags, ",")),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
