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

// MemberService manages club members.
type MemberService struct {
	repo       repository.MemberRepository
	cache      *cache.Cache
	dispatcher *cache.Dispatcher
	ttl        CacheTTL
	logger     *slog.Logger
}

// NewMemberService creates a new member service.
func NewMemberService(repo repository.MemberRepository, c *cache.Cache, dispatcher *cache.Dispatcher, ttl CacheTTL, logger *slog.Logger) *MemberService {
	return &MemberService{
		repo:       repo,
		cache:      c,
		dispatcher: dispatcher,
		ttl:        ttl,
		logger:     logger,
	}
}

// List returns all members, cached under the members tag.
func (s *MemberService) List(ctx context.Context) ([]domain.Member, error) {
	members, err := cache.GetOrCompute(ctx, s.cache, cache.MembersKey, []string{cache.MembersTag}, s.ttl.Metadata, s.repo.List)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Get returns a member by ID.
func (s *MemberService) Get(ctx context.Context, id string) (*domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// Create registers a member. The role defaults to USER.
func (s *MemberService) Create(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	if m.Role == "" {
		m.Role = domain.RoleUser
	}
	if err := validateMember(m); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m.ID = uuid.New().String()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}

	logInvalidationError(ctx, s.logger, "member.created", s.dispatcher.MemberChanged(ctx))

	s.logger.InfoContext(ctx, "member created",
		slog.String("member_id", m.ID),
		slog.String("role", m.Role),
	)
	return m, nil
}

// Update edits a member.
func (s *MemberService) Update(ctx context.Context, m *domain.Member) (*domain.Member, error) {
	if m.ID == "" {
		return nil, apperrors.InvalidInput("member id is required")
	}
	if err := validateMember(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}

	logInvalidationError(ctx, s.logger, "member.updated", s.dispatcher.MemberChanged(ctx))

	s.logger.InfoContext(ctx, "member updated", slog.String("member_id", m.ID))
	return m, nil
}

// Delete removes a member who has not voted.
func (s *MemberService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}

	logInvalidationError(ctx, s.logger, "member.deleted", s.dispatcher.MemberChanged(ctx))

	s.logger.InfoContext(ctx, "member deleted", slog.String("member_id", id))
	return nil
}

func validateMember(m *domain.Member) error {
	m.Name = strings.TrimSpace(m.Name)
	m.LastName = strings.TrimSpace(m.LastName)
	m.Email = strings.ToLower(strings.TrimSpace(m.Email))

	if m.Name == "" {
		return apperrors.InvalidInput("name is required")
	}
	if m.Email == "" {
		return apperrors.InvalidInput("email is required")
	}
	if !domain.IsValidRole(m.Role) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid role %q", m.Role))
	}
	return nil
}
