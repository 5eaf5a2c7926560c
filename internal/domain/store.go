package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market rows and their resolution state.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)

	// ListDue returns markets with status=active whose closing date is
	// before the given instant.
	ListDue(ctx context.Context, before time.Time, opts ListOpts) ([]Market, error)

	// ApplyResolution writes the terminal resolution state for a market.
	// The write is conditional on the row still being active; it returns
	// ErrAlreadyResolved when another writer got there first.
	ApplyResolution(ctx context.Context, id string, upd ResolutionUpdate) error

	CountByStatus(ctx context.Context, status MarketStatus) (int64, error)
	CountDue(ctx context.Context, before time.Time) (int64, error)
	CountResolvedSince(ctx context.Context, since time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
