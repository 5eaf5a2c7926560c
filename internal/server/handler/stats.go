package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/resolverd/resolverd/internal/domain"
)

// StatsProvider computes aggregate resolution counts.
type StatsProvider interface {
	Stats(ctx context.Context) (domain.ResolutionStats, error)
}

// StatsHandler serves aggregate resolution statistics.
type StatsHandler struct {
	stats  StatsProvider
	logger *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(stats StatsProvider, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// GetStats responds with total/active/closed/pending/resolved-today counts.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "stats query failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_markets":      stats.Total,
		"active_markets":     stats.Active,
		"closed_markets":     stats.Closed,
		"pending_resolution": stats.PendingResolution,
		"resolved_today":     stats.ResolvedToday,
	})
}
