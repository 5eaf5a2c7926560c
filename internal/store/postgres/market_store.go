package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolverd/resolverd/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, question, question_type, detailed_type, resolution_criteria,
	closing_date, status, resolution, resolution_data, dispute_reason,
	resolved_at, created_at, updated_at`

// Upsert inserts or updates a market row. Resolution fields are never
// touched here; they are written once via ApplyResolution.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, question, question_type, detailed_type, resolution_criteria,
			closing_date, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			question_type       = EXCLUDED.question_type,
			detailed_type       = EXCLUDED.detailed_type,
			resolution_criteria = EXCLUDED.resolution_criteria,
			closing_date        = EXCLUDED.closing_date,
			updated_at          = NOW()`

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	status := m.Status
	if status == "" {
		status = domain.MarketStatusActive
	}

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Question, m.QuestionType, string(m.DetailedType), m.ResolutionCriteria,
		m.ClosingDate, string(status), createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status, detailedType string
	var resolution *string
	var resolutionData []byte
	err := row.Scan(
		&m.ID, &m.Question, &m.QuestionType, &detailedType, &m.ResolutionCriteria,
		&m.ClosingDate, &status, &resolution, &resolutionData, &m.DisputeReason,
		&m.ResolvedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.DetailedType = domain.QuestionType(detailedType)
	if resolution != nil {
		m.Resolution = domain.Resolution(*resolution)
	}
	if len(resolutionData) > 0 {
		var rd domain.ResolutionData
		if err := json.Unmarshal(resolutionData, &rd); err != nil {
			return domain.Market{}, fmt.Errorf("decode resolution_data: %w", err)
		}
		m.ResolutionData = &rd
	}
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// ListDue returns active markets whose closing date is before the given
// instant, oldest first so long-overdue markets are resolved first.
func (s *MarketStore) ListDue(ctx context.Context, before time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets
		WHERE status = 'active' AND closing_date < $1
		ORDER BY closing_date ASC`
	args := []any{before}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list due markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan due market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list due markets rows: %w", err)
	}
	return markets, nil
}

// ApplyResolution writes the terminal resolution state for a market. The
// update is guarded by status='active' so that two racing schedulers cannot
// both write an outcome; the loser observes ErrAlreadyResolved.
func (s *MarketStore) ApplyResolution(ctx context.Context, id string, upd domain.ResolutionUpdate) error {
	var data []byte
	if upd.Data != nil {
		var err error
		data, err = json.Marshal(upd.Data)
		if err != nil {
			return fmt.Errorf("postgres: encode resolution_data for %s: %w", id, err)
		}
	}

	const query = `
		UPDATE markets SET
			status          = $2,
			resolution      = $3,
			resolution_data = $4,
			resolved_at     = $5,
			dispute_reason  = $6,
			updated_at      = NOW()
		WHERE id = $1 AND status = 'active'`

	tag, err := s.pool.Exec(ctx, query,
		id, string(upd.Status), string(upd.Resolution), data, upd.ResolvedAt, upd.DisputeReason,
	)
	if err != nil {
		return fmt.Errorf("postgres: apply resolution %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the market does not exist or it already left the active
		// state; distinguish for the caller.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM markets WHERE id = $1)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: apply resolution %s: %w", id, err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

// CountByStatus returns the number of markets in the given status.
func (s *MarketStore) CountByStatus(ctx context.Context, status domain.MarketStatus) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM markets WHERE status = $1", string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets by status %s: %w", status, err)
	}
	return count, nil
}

// CountDue returns the number of active markets past their closing date.
func (s *MarketStore) CountDue(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM markets WHERE status = 'active' AND closing_date < $1", before,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count due markets: %w", err)
	}
	return count, nil
}

// CountResolvedSince returns the number of markets resolved at or after the
// given instant.
func (s *MarketStore) CountResolvedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM markets WHERE resolved_at >= $1", since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count resolved markets: %w", err)
	}
	return count, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
