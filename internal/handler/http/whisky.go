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

// WhiskyService is the whisky use case the handlers drive.
type WhiskyService interface {
	Create(ctx context.Context, w *domain.Whisky) (*domain.Whisky, error)
	Update(ctx context.Context, w *domain.Whisky) (*domain.Whisky, error)
	Delete(ctx context.Context, id string) error
	ListByMeeting(ctx context.Context, meetingID string) ([]domain.Whisky, error)
}

// WhiskyHandler handles HTTP requests for whisky endpoints.
type WhiskyHandler struct {
	service WhiskyService
	logger  *slog.Logger
}

// NewWhiskyHandler creates a new whisky HTTP handler.
func NewWhiskyHandler(svc WhiskyService, logger *slog.Logger) *WhiskyHandler {
	return &WhiskyHandler{service: svc, logger: logger}
}

// WhiskyRequest is the JSON request body for adding or editing a whisky.
type WhiskyRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Description  string `json:"description" validate:"max=4000"`
	ImageURL     string `json:"image_url" validate:"omitempty,url"`
	DisplayOrder int    `json:"display_order" validate:"required,gte=1"`
}

func (req WhiskyRequest) toDomain() *domain.Whisky {
	return &domain.Whisky{
		Name:         req.Name,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		DisplayOrder: req.DisplayOrder,
	}
}

// Create handles POST /api/v1/meetings/{id}/whiskies
func (h *WhiskyHandler) Create(w http.ResponseWriter, r *http.Request) {
	meetingID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req WhiskyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	whisky := req.toDomain()
	whisky.MeetingID = meetingID.String()

	created, err := h.service.Create(r.Context(), whisky)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, created)
}

// Update handles PUT /api/v1/whiskies/{id}
func (h *WhiskyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req WhiskyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	whisky := req.toDomain()
	whisky.ID = id.String()

	updated, err := h.service.Update(r.Context(), whisky)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/whiskies/{id}
func (h *WhiskyHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
