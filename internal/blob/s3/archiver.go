package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/resolverd/resolverd/internal/domain"
)

// Archiver writes terminal resolution records to cold storage as JSON, one
// object per resolution, keyed by date and market. The archive is the audit
// trail consulted during dispute review.
type Archiver struct {
	writer domain.BlobWriter
	logger *slog.Logger
}

// NewArchiver creates an Archiver over the given blob writer.
func NewArchiver(writer domain.BlobWriter, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// archivedRecord is the serialized form of a resolution record.
type archivedRecord struct {
	ID            string                `json:"id"`
	MarketID      string                `json:"market_id"`
	Resolution    domain.Resolution     `json:"resolution"`
	DisputeRisk   domain.DisputeRisk    `json:"dispute_risk"`
	DisputeReason string                `json:"dispute_reason,omitempty"`
	Fallback      bool                  `json:"fallback"`
	Data          domain.ResolutionData `json:"data"`
	ArchivedAt    time.Time             `json:"archived_at"`
}

// ArchiveResolution uploads one resolution record. Keys look like
// "resolutions/2026/08/31/<market-id>-<record-id>.json".
func (a *Archiver) ArchiveResolution(ctx context.Context, rec domain.ResolutionRecord) error {
	doc := archivedRecord{
		ID:            rec.ID,
		MarketID:      rec.MarketID,
		Resolution:    rec.Resolution,
		DisputeRisk:   rec.DisputeRisk,
		DisputeReason: rec.DisputeReason,
		Fallback:      rec.Fallback,
		Data:          rec.Data,
		ArchivedAt:    time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("s3blob: encode resolution record %s: %w", rec.ID, err)
	}

	ts := rec.Data.ResolutionTimestamp
	if ts.IsZero() {
		ts = doc.ArchivedAt
	}
	key := fmt.Sprintf("resolutions/%s/%s-%s.json", ts.UTC().Format("2006/01/02"), rec.MarketID, rec.ID)

	if err := a.writer.Put(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return err
	}

	a.logger.DebugContext(ctx, "resolution archived",
		slog.String("market_id", rec.MarketID),
		slog.String("key", key),
	)
	return nil
}
