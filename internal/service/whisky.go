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
)

// WhiskyService manages the whiskies poured at a meeting.
type WhiskyService struct {
	repo        repository.WhiskyRepository
	meetingRepo repository.MeetingRepository
	cache       *cache.Cache
	dispatcher  *cache.Dispatcher
	ttl         CacheTTL
	logger      *slog.Logger
}

// NewWhiskyService creates a new whisky service.
func NewWhiskyService(
	repo repository.WhiskyRepository,
	meetingRepo repository.MeetingRepository,
	c *cache.Cache,
	dispatcher *cache.Dispatcher,
	ttl CacheTTL,
	logger *slog.Logger,
) *WhiskyService {
	return &WhiskyService{
		repo:        repo,
		meetingRepo: meetingRepo,
		cache:       c,
		dispatcher:  dispatcher,
		ttl:         ttl,
		logger:      logger,
	}
}

// Create adds a whisky to an open meeting.
func (s *WhiskyService) Create(ctx context.Context, w *domain.Whisky) (*domain.Whisky, error) {
	if w.MeetingID == "" {
		return nil, apperrors.InvalidInput("meeting_id is required")
	}
	if err := validateWhisky(w); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	w.ID = uuid.New().String()
	w.Quaich = false
	w.CreatedAt = now
	w.UpdatedAt = now

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create whisky: %w", err)
	}

	logInvalidationError(ctx, s.logger, "whisky.created", s.dispatcher.WhiskyChanged(ctx, w.MeetingID, w.ID))

	s.logger.InfoContext(ctx, "whisky created",
		slog.String("whisky_id", w.ID),
		slog.String("meeting_id", w.MeetingID),
		slog.Int("display_order", w.DisplayOrder),
	)
	return w, nil
}

// Update edits a whisky while its meeting is open.
func (s *WhiskyService) Update(ctx context.Context, w *domain.Whisky) (*domain.Whisky, error) {
	if w.ID == "" {
		return nil, apperrors.InvalidInput("whisky id is required")
	}
	if err := validateWhisky(w); err != nil {
		return nil, err
	}
	w.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("update whisky: %w", err)
	}

	logInvalidationError(ctx, s.logger, "whisky.updated", s.dispatcher.WhiskyChanged(ctx, w.MeetingID, w.ID))

	s.logger.InfoContext(ctx, "whisky updated",
		slog.String("whisky_id", w.ID),
		slog.String("meeting_id", w.MeetingID),
	)
	return w, nil
}

// Delete removes a whisky nobody has voted for.
func (s *WhiskyService) Delete(ctx context.Context, id string) error {
	meetingID, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete whisky: %w", err)
	}

	logInvalidationError(ctx, s.logger, "whisky.deleted", s.dispatcher.WhiskyRemoved(ctx, meetingID, id))

	s.logger.InfoContext(ctx, "whisky deleted",
		slog.String("whisky_id", id),
		slog.String("meeting_id", meetingID),
	)
	return nil
}

// ListByMeeting returns the meeting's whiskies in display order, cached
// under the meeting's whisky-list tag.
func (s *WhiskyService) ListByMeeting(ctx context.Context, meetingID string) ([]domain.Whisky, error) {
	key := cache.MeetingWhiskiesKey(meetingID)
	tags := []string{cache.MeetingWhiskiesTag(meetingID)}

	whiskies, err := cache.GetOrCompute(ctx, s.cache, key, tags, s.ttl.Metadata, func(ctx context.Context) ([]domain.Whisky, error) {
		if _, err := s.meetingRepo.GetByID(ctx, meetingID); err != nil {
			return nil, err
		}
		return s.repo.ListByMeeting(ctx, meetingID)
	})
	if err != nil {
		return nil, fmt.Errorf("list whiskies: %w", err)
	}
	return whiskies, nil
}

func validateWhisky(w *domain.Whisky) error {
	w.Name = strings.TrimSpace(w.Name)
	if w.Name == "" {
		return apperrors.InvalidInput("name is required")
	}
	if w.DisplayOrder < 1 {
		return apperrors.InvalidInput("display_order must be positive")
	}
	return nil
}
