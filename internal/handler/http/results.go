package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/QuaichGo/internal/domain"
	"github.com/utafrali/QuaichGo/pkg/httputil"
)

// ResultsService serves the cached read models.
type ResultsService interface {
	GetMeetingResults(ctx context.Context, meetingID string, fresh bool) (*domain.MeetingResults, error)
	GetWhiskyAggregate(ctx context.Context, whiskyID string) (*domain.WhiskyAggregate, error)
}

// ResultsHandler handles HTTP requests for results endpoints.
type ResultsHandler struct {
	service ResultsService
	logger  *slog.Logger
}

// NewResultsHandler creates a new results HTTP handler.
func NewResultsHandler(svc ResultsService, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{service: svc, logger: logger}
}

// GetMeetingResults handles GET /api/v1/meetings/{id}/results. fresh=true
// bypasses the cached copy and stores the recomputed one.
func (h *ResultsHandler) GetMeetingResults(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	fresh, _ := strconv.ParseBool(r.URL.Query().Get("fresh"))

	results, err := h.service.GetMeetingResults(r.Context(), id.String(), fresh)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, results)
}

// GetWhiskyAggregate handles GET /api/v1/whiskies/{id}/aggregate
func (h *ResultsHandler) GetWhiskyAggregate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	agg, err := h.service.GetWhiskyAggregate(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, agg)
}
