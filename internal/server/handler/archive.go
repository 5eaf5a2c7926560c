package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/resolverd/resolverd/internal/domain"
)

// defaultArchivePrefix scopes listings to resolution records, the only keys
// the archiver writes.
const defaultArchivePrefix = "resolutions/"

// ArchiveHandler serves the resolution audit archive, so dispute review can
// consult archived records without direct bucket access.
type ArchiveHandler struct {
	reader domain.BlobReader // nil when the archive is disabled
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler. reader may be nil when no
// archive backend is configured; the endpoints then answer 503.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, logger: logger}
}

// ListArchived responds with the archive keys under the given prefix.
// GET /api/resolutions/archive?prefix=resolutions/2026/01/02/
func (h *ArchiveHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "resolution archive is not enabled")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = defaultArchivePrefix
	}

	keys, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive list failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prefix": prefix,
		"count":  len(keys),
		"keys":   keys,
	})
}

// GetArchived streams one archived resolution record.
// GET /api/resolutions/archive/{key...}
func (h *ArchiveHandler) GetArchived(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "resolution archive is not enabled")
		return
	}

	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "archive key is required")
		return
	}

	body, err := h.reader.Get(r.Context(), key)
	if err != nil {
		h.logger.WarnContext(r.Context(), "archive get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusNotFound, "archived record not found")
		return
	}
	defer body.Close()

	// Archived records are the JSON documents the archiver wrote.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
