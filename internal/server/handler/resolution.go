package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/resolverd/resolverd/internal/domain"
)

// ResolutionRunner triggers a full resolution pass over all due markets.
type ResolutionRunner interface {
	ProcessAllPendingResolutions(ctx context.Context) (int, error)
}

// ResolutionHandler serves per-market resolution state and the manual
// resolution trigger.
type ResolutionHandler struct {
	store  domain.MarketStore
	runner ResolutionRunner
	logger *slog.Logger
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(store domain.MarketStore, runner ResolutionRunner, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{store: store, runner: runner, logger: logger}
}

// marketResolutionResponse is the wire shape for a market's resolution state.
type marketResolutionResponse struct {
	MarketID      string                 `json:"market_id"`
	Question      string                 `json:"question"`
	DetailedType  domain.QuestionType    `json:"question_type_detailed"`
	ClosingDate   time.Time              `json:"closing_date"`
	Status        domain.MarketStatus    `json:"status"`
	Resolution    domain.Resolution      `json:"resolution,omitempty"`
	Data          *domain.ResolutionData `json:"resolution_data,omitempty"`
	DisputeReason string                 `json:"dispute_reason,omitempty"`
	ResolvedAt    *time.Time             `json:"resolved_at,omitempty"`
}

// GetResolution responds with the resolution state of one market.
// GET /api/markets/{id}/resolution
func (h *ResolutionHandler) GetResolution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "market id is required")
		return
	}

	m, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "market lookup failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load market")
		return
	}

	writeJSON(w, http.StatusOK, marketResolutionResponse{
		MarketID:      m.ID,
		Question:      m.Question,
		DetailedType:  m.DetailedType,
		ClosingDate:   m.ClosingDate,
		Status:        m.Status,
		Resolution:    m.Resolution,
		Data:          m.ResolutionData,
		DisputeReason: m.DisputeReason,
		ResolvedAt:    m.ResolvedAt,
	})
}

// RunResolutions triggers one resolution pass over all due markets and
// responds with the number resolved.
// POST /api/resolutions/run
func (h *ResolutionHandler) RunResolutions(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.runner.ProcessAllPendingResolutions(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual resolution pass failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "resolution pass failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resolved": resolved,
	})
}
