package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/httputil"
	"github.com/utafrali/QuaichGo/pkg/middleware"
	"github.com/utafrali/QuaichGo/pkg/validator"
)

// VoteService is the voting use case the handlers drive.
type VoteService interface {
	Cast(ctx context.Context, whiskyID, memberID string, rating int, comment *string) (*domain.Vote, error)
	Update(ctx context.Context, whiskyID, memberID string, rating int, comment *string) (*domain.Vote, error)
}

// VoteHandler handles HTTP requests for vote endpoints. The voting member
// is always the authenticated caller.
type VoteHandler struct {
	service VoteService
	logger  *slog.Logger
}

// NewVoteHandler creates a new vote HTTP handler.
func NewVoteHandler(svc VoteService, logger *slog.Logger) *VoteHandler {
	return &VoteHandler{service: svc, logger: logger}
}

// VoteRequest is the JSON request body for casting or editing a vote.
type VoteRequest struct {
	Rating  int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// Cast handles POST /api/v1/whiskies/{id}/votes
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, http.StatusCreated, h.service.Cast)
}

// Update handles PUT /api/v1/whiskies/{id}/votes/me
func (h *VoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, http.StatusOK, h.service.Update)
}

type voteFunc func(ctx context.Context, whiskyID, memberID string, rating int, comment *string) (*domain.Vote, error)

func (h *VoteHandler) handle(w http.ResponseWriter, r *http.Request, status int, fn voteFunc) {
	whiskyID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req VoteRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	memberID := middleware.MemberIDFromContext(r.Context())
	vote, err := fn(r.Context(), whiskyID.String(), memberID, req.Rating, req.Comment)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, vote)
}
