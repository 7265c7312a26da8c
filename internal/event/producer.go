package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/QuaichGo/internal/domain"
	pkgkafka "github.com/utafrali/QuaichGo/pkg/kafka"
	"github.com/utafrali/QuaichGo/pkg/logger"
)

// Kafka topics produced by the service.
var (
	TopicVoteCast         = pkgkafka.Topic("vote", "cast")
	TopicVoteUpdated      = pkgkafka.Topic("vote", "updated")
	TopicMeetingClosed    = pkgkafka.Topic("meeting", "closed")
	TopicCacheInvalidated = pkgkafka.Topic("cache", "invalidated")
)

// Aggregate types.
const (
	AggregateTypeVote    = "vote"
	AggregateTypeMeeting = "meeting"
	AggregateTypeCache   = "cache"
)

// SourceQuaichService identifies events produced by this service.
const SourceQuaichService = "quaich-service"

// VoteData is the payload of vote.cast and vote.updated events.
type VoteData struct {
	VoteID    string `json:"vote_id"`
	MeetingID string `json:"meeting_id"`
	WhiskyID  string `json:"whisky_id"`
	MemberID  string `json:"member_id"`
	Rating    int    `json:"rating"`
}

// MeetingClosedData is the payload of a meeting.closed event.
type MeetingClosedData struct {
	MeetingID      string    `json:"meeting_id"`
	QuaichWhiskyID *string   `json:"quaich_whisky_id"`
	ClosedAt       time.Time `json:"closed_at"`
}

// InvalidationData is the payload of a cache.invalidated event.
type InvalidationData struct {
	Tags []string `json:"tags"`
}

// Publisher is the part of *pkgkafka.Producer the event producer uses.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes domain events and cache invalidations. Every event is
// stamped with the instance ID so consumers can recognise their own
// broadcasts.
type Producer struct {
	kafka      Publisher
	instanceID string
	logger     *slog.Logger
}

// NewProducer creates a new event producer for this instance.
func NewProducer(kafka Publisher, instanceID string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:      kafka,
		instanceID: instanceID,
		logger:     logger,
	}
}

// PublishVoteCast publishes a vote.cast event.
func (p *Producer) PublishVoteCast(ctx context.Context, meetingID string, vote *domain.Vote) error {
	return p.publishVote(ctx, TopicVoteCast, meetingID, vote)
}

// PublishVoteUpdated publishes a vote.updated event.
func (p *Producer) PublishVoteUpdated(ctx context.Context, meetingID string, vote *domain.Vote) error {
	return p.publishVote(ctx, TopicVoteUpdated, meetingID, vote)
}

func (p *Producer) publishVote(ctx context.Context, topic, meetingID string, vote *domain.Vote) error {
	data := VoteData{
		VoteID:    vote.ID,
		MeetingID: meetingID,
		WhiskyID:  vote.WhiskyID,
		MemberID:  vote.MemberID,
		Rating:    vote.Rating,
	}
	// Keyed by meeting so one meeting's votes stay ordered.
	return p.publish(ctx, topic, meetingID, AggregateTypeVote, data)
}

// PublishMeetingClosed publishes a meeting.closed event.
func (p *Producer) PublishMeetingClosed(ctx context.Context, meeting *domain.Meeting) error {
	data := MeetingClosedData{
		MeetingID:      meeting.ID,
		QuaichWhiskyID: meeting.QuaichWhiskyID,
	}
	if meeting.ClosedAt != nil {
		data.ClosedAt = *meeting.ClosedAt
	}
	return p.publish(ctx, TopicMeetingClosed, meeting.ID, AggregateTypeMeeting, data)
}

// BroadcastInvalidation publishes evicted tags so other instances evict
// them too.
func (p *Producer) BroadcastInvalidation(ctx context.Context, tags []string) error {
	return p.publish(ctx, TopicCacheInvalidated, p.instanceID, AggregateTypeCache, InvalidationData{Tags: tags})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceQuaichService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithMetadata(pkgkafka.MetadataOrigin, p.instanceID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
