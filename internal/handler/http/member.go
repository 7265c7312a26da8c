package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/httputil"
	"github.com/utafrali/QuaichGo/pkg/validator"
)

// MemberService is the member use case the handlers drive.
type MemberService interface {
	List(ctx context.Context) ([]domain.Member, error)
	Get(ctx context.Context, id string) (*domain.Member, error)
	Create(ctx context.Context, m *domain.Member) (*domain.Member, error)
	Update(ctx context.Context, m *domain.Member) (*domain.Member, error)
	Delete(ctx context.Context, id string) error
}

// MemberHandler handles HTTP requests for member endpoints.
type MemberHandler struct {
	service MemberService
	logger  *slog.Logger
}

// NewMemberHandler creates a new member HTTP handler.
func NewMemberHandler(svc MemberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{service: svc, logger: logger}
}

// MemberRequest is the JSON request body for creating or editing a member.
type MemberRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	LastName string `json:"last_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

func (req MemberRequest) toDomain() *domain.Member {
	return &domain.Member{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		ImageURL: req.ImageURL,
		Role:     req.Role,
	}
}

// List handles GET /api/v1/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if members == nil {
		members = []domain.Member{}
	}
	httputil.WriteData(w, http.StatusOK, members)
}

// Get handles GET /api/v1/members/{id}
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// Create handles POST /api/v1/members
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	m, err := h.service.Create(r.Context(), req.toDomain())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, m)
}

// Update handles PUT /api/v1/members/{id}
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req MemberRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	member := req.toDomain()
	member.ID = id.String()

	m, err := h.service.Update(r.Context(), member)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// Delete handles DELETE /api/v1/members/{id}
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
