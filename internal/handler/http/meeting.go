package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/httputil"
	"github.com/utafrali/QuaichGo/pkg/pagination"
	"github.com/utafrali/QuaichGo/pkg/validator"
)

// MeetingService is the meeting use case the handler drives.
type MeetingService interface {
	Create(ctx context.Context, m *domain.Meeting) (*domain.Meeting, error)
	Get(ctx context.Context, id string) (*domain.Meeting, error)
	List(ctx context.Context, params pagination.Params) (pagination.Result[domain.Meeting], error)
	Update(ctx context.Context, m *domain.Meeting) (*domain.Meeting, error)
	Close(ctx context.Context, id string, quaichWhiskyID *string) (*domain.Meeting, error)
}

// MeetingHandler handles HTTP requests for meeting endpoints.
type MeetingHandler struct {
	service  MeetingService
	whiskies WhiskyService
	logger   *slog.Logger
}

// NewMeetingHandler creates a new meeting HTTP handler.
func NewMeetingHandler(svc MeetingService, whiskies WhiskyService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{
		service:  svc,
		whiskies: whiskies,
		logger:   logger,
	}
}

// --- Request DTOs ---

// MeetingRequest is the JSON request body for creating or editing a meeting.
// On edit an omitted quaich_whisky_id keeps the current quaich and an empty
// string clears it.
type MeetingRequest struct {
	Date           time.Time `json:"date" validate:"required"`
	Location       string    `json:"location" validate:"required,max=255"`
	QuaichWhiskyID *string   `json:"quaich_whisky_id" validate:"omitempty,uuid"`
}

// CloseMeetingRequest is the optional JSON body of a close request.
type CloseMeetingRequest struct {
	QuaichWhiskyID *string `json:"quaich_whisky_id" validate:"omitempty,uuid"`
}

// --- Handlers ---

// List handles GET /api/v1/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

// Create handles POST /api/v1/meetings
func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MeetingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	m, err := h.service.Create(r.Context(), &domain.Meeting{
		Date:     req.Date,
		Location: req.Location,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, m)
}

// Get handles GET /api/v1/meetings/{id}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Update handles PUT /api/v1/meetings/{id}
func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req MeetingRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	m, err := h.service.Update(r.Context(), &domain.Meeting{
		ID:             id.String(),
		Date:           req.Date,
		Location:       req.Location,
		QuaichWhiskyID: req.QuaichWhiskyID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// Close handles POST /api/v1/meetings/{id}/close. The body is optional.
func (h *MeetingHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CloseMeetingRequest
	if r.ContentLength != 0 {
		if err := validator.DecodeAndValidate(r, &req); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
	}

	m, err := h.service.Close(r.Context(), id.String(), req.QuaichWhiskyID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, m)
}

// ListWhiskies handles GET /api/v1/meetings/{id}/whiskies
func (h *MeetingHandler) ListWhiskies(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	whiskies, err := h.whiskies.ListByMeeting(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if whiskies == nil {
		whiskies = []domain.Whisky{}
	}
	httputil.WriteData(w, http.StatusOK, whiskies)
}
