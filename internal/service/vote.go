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

// VoteService casts and edits votes.
type VoteService struct {
	repo       repository.VoteRepository
	dispatcher *cache.Dispatcher
	events     EventPublisher
	logger     *slog.Logger
}

// NewVoteService creates a new vote service. events may be nil.
func NewVoteService(repo repository.VoteRepository, dispatcher *cache.Dispatcher, events EventPublisher, logger *slog.Logger) *VoteService {
	return &VoteService{
		repo:       repo,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger,
	}
}

// Cast records memberID's rating of whiskyID. A second vote by the same
// member fails with DUPLICATE_VOTE; the existing vote is left untouched.
func (s *VoteService) Cast(ctx context.Context, whiskyID, memberID string, rating int, comment *string) (*domain.Vote, error) {
	if err := validateVote(whiskyID, memberID, rating); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vote := &domain.Vote{
		ID:        uuid.New().String(),
		WhiskyID:  whiskyID,
		MemberID:  memberID,
		Rating:    rating,
		Comment:   normalizeComment(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}

	meetingID, err := s.repo.Create(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("cast vote: %w", err)
	}

	logInvalidationError(ctx, s.logger, "vote.cast", s.dispatcher.VoteChanged(ctx, meetingID, whiskyID))

	if s.events != nil {
		if err := s.events.PublishVoteCast(ctx, meetingID, vote); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish vote.cast event",
				slog.String("vote_id", vote.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "vote cast",
		slog.String("vote_id", vote.ID),
		slog.String("meeting_id", meetingID),
		slog.String("whisky_id", whiskyID),
		slog.Int("rating", rating),
	)

	return vote, nil
}

// Update changes the rating and comment of memberID's vote on whiskyID.
func (s *VoteService) Update(ctx context.Context, whiskyID, memberID string, rating int, comment *string) (*domain.Vote, error) {
	if err := validateVote(whiskyID, memberID, rating); err != nil {
		return nil, err
	}

	vote := &domain.Vote{
		WhiskyID:  whiskyID,
		MemberID:  memberID,
		Rating:    rating,
		Comment:   normalizeComment(comment),
		UpdatedAt: time.Now().UTC(),
	}

	meetingID, err := s.repo.Update(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("update vote: %w", err)
	}

	logInvalidationError(ctx, s.logger, "vote.updated", s.dispatcher.VoteChanged(ctx, meetingID, whiskyID))

	if s.events != nil {
		if err := s.events.PublishVoteUpdated(ctx, meetingID, vote); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish vote.updated event",
				slog.String("vote_id", vote.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "vote updated",
		slog.String("vote_id", vote.ID),
		slog.String("meeting_id", meetingID),
		slog.String("whisky_id", whiskyID),
		slog.Int("rating", rating),
	)

	return vote, nil
}

func validateVote(whiskyID, memberID string, rating int) error {
	if whiskyID == "" {
		return apperrors.InvalidInput("whisky_id is required")
	}
	if memberID == "" {
		return apperrors.Unauthorized("member identity is required to vote")
	}
	if !domain.IsValidRating(rating) {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	return nil
}

// normalizeComment maps blank comments to nil.
func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
