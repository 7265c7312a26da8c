package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/internal/repository"
	apperrors "github.com/utafrali/QuaichGo/pkg/errors"
	"github.com/utafrali/QuaichGo/pkg/pagination"
)

// MeetingService manages tasting meetings.
type MeetingService struct {
	repo       repository.MeetingRepository
	cache      *cache.Cache
	dispatcher *cache.Dispatcher
	events     EventPublisher
	ttl        CacheTTL
	logger     *slog.Logger
}

// NewMeetingService creates a new meeting service. events may be nil.
func NewMeetingService(
	repo repository.MeetingRepository,
	c *cache.Cache,
	dispatcher *cache.Dispatcher,
	events EventPublisher,
	ttl CacheTTL,
	logger *slog.Logger,
) *MeetingService {
	return &MeetingService{
		repo:       repo,
		cache:      c,
		dispatcher: dispatcher,
		events:     events,
		ttl:        ttl,
		logger:     logger,
	}
}

// Create opens a new meeting.
func (s *MeetingService) Create(ctx context.Context, m *domain.Meeting) (*domain.Meeting, error) {
	if err := validateMeeting(m); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.ID = uuid.New().String()
	m.Status = domain.MeetingStatusOpen
	m.QuaichWhiskyID = nil
	m.ClosedAt = nil
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	s.logger.InfoContext(ctx, "meeting created",
		slog.String("meeting_id", m.ID),
		slog.String("location", m.Location),
	)
	return m, nil
}

// Get returns the meeting, cached under its meeting tag.
func (s *MeetingService) Get(ctx context.Context, id string) (*domain.Meeting, error) {
	key := cache.MeetingKey(id)
	tags := []string{cache.MeetingTag(id)}

	m, err := cache.GetOrCompute(ctx, s.cache, key, tags, s.ttl.Metadata, func(ctx context.Context) (*domain.Meeting, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// List returns one page of meetings, newest first.
func (s *MeetingService) List(ctx context.Context, params pagination.Params) (pagination.Result[domain.Meeting], error) {
	meetings, total, err := s.repo.List(ctx, params.Page, params.PerPage)
	if err != nil {
		return pagination.Result[domain.Meeting]{}, fmt.Errorf("list meetings: %w", err)
	}
	return pagination.NewResult(meetings, total, params), nil
}

// Update edits the meeting's date, location and quaich whisky.
func (s *MeetingService) Update(ctx context.Context, m *domain.Meeting) (*domain.Meeting, error) {
	if m.ID == "" {
		return nil, apperrors.InvalidInput("meeting id is required")
	}
	if err := validateMeeting(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}

	logInvalidationError(ctx, s.logger, "meeting.updated", s.dispatcher.MeetingChanged(ctx, m.ID))

	updated, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("get meeting after update: %w", err)
	}

	s.logger.InfoContext(ctx, "meeting updated", slog.String("meeting_id", m.ID))
	return updated, nil
}

// Close closes the meeting. Without quaichWhiskyID the best-rated whisky is
// chosen, ties going to the lower display order.
func (s *MeetingService) Close(ctx context.Context, id string, quaichWhiskyID *string) (*domain.Meeting, error) {
	if quaichWhiskyID != nil && strings.TrimSpace(*quaichWhiskyID) == "" {
		quaichWhiskyID = nil
	}

	m, err := s.repo.Close(ctx, id, quaichWhiskyID)
	if err != nil {
		return nil, fmt.Errorf("close meeting: %w", err)
	}

	logInvalidationError(ctx, s.logger, "meeting.closed", s.dispatcher.MeetingChanged(ctx, id))

	if s.events != nil {
		if err := s.events.PublishMeetingClosed(ctx, m); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish meeting.closed event",
				slog.String("meeting_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	quaich := ""
	if m.QuaichWhiskyID != nil {
		quaich = *m.QuaichWhiskyID
	}
	s.logger.InfoContext(ctx, "meeting closed",
		slog.String("meeting_id", id),
		slog.String("quaich_whisky_id", quaich),
	)
	return m, nil
}

func validateMeeting(m *domain.Meeting) error {
	m.Location = strings.TrimSpace(m.Location)
	if m.Location == "" {
		return apperrors.InvalidInput("location is required")
	}
	if m.Date.IsZero() {
		return apperrors.InvalidInput("date is required")
	}
	return nil
}
