// Package scheduler finds markets whose closing time has passed, drives the
// resolution engine for each, and persists the terminal outcome. It is the
// only component that writes resolution state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/resolverd/resolverd/internal/domain"
	"github.com/resolverd/resolverd/internal/notify"
)

// Resolver produces a decided resolution record for one due market. It is
// total: it never returns an error.
type Resolver interface {
	ResolveMarket(ctx context.Context, sr domain.ScheduledResolution) domain.ResolutionRecord
}

// Archiver persists resolution records to cold storage for audit.
type Archiver interface {
	ArchiveResolution(ctx context.Context, rec domain.ResolutionRecord) error
}

// Notifier delivers operator notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config tunes the scheduler.
type Config struct {
	// PollInterval is the tick period in watch mode.
	PollInterval time.Duration

	// BatchLimit caps the number of due markets processed per pass; zero
	// means no limit.
	BatchLimit int

	// Workers is the number of markets processed in parallel within one
	// pass. 1 (the default) means strictly sequential processing.
	Workers int

	// LockTTL bounds how long a per-market resolution lock is held. It
	// must comfortably exceed the engine's fetch timeout.
	LockTTL time.Duration
}

// DefaultConfig returns the standard scheduler parameters.
func DefaultConfig() Config {
	return Config{
		PollInterval: time.Minute,
		BatchLimit:   100,
		Workers:      1,
		LockTTL:      2 * time.Minute,
	}
}

// Scheduler polls the market store for due markets and resolves them.
type Scheduler struct {
	store    domain.MarketStore
	engine   Resolver
	locks    domain.LockManager // nil disables cross-process locking
	archiver Archiver           // nil disables archival
	notifier Notifier           // nil disables notifications
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Scheduler. locks, archiver, and notifier are optional.
func New(store domain.MarketStore, engine Resolver, locks domain.LockManager, archiver Archiver, notifier Notifier, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Scheduler{
		store:    store,
		engine:   engine,
		locks:    locks,
		archiver: archiver,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scheduler")),
		now:      time.Now,
	}
}

// CheckPendingResolutions returns a work item for every active market whose
// closing date has passed. Closed markets never reappear here; terminal
// state is idempotent by construction of the store query.
func (s *Scheduler) CheckPendingResolutions(ctx context.Context) ([]domain.ScheduledResolution, error) {
	markets, err := s.store.ListDue(ctx, s.now().UTC(), domain.ListOpts{Limit: s.cfg.BatchLimit})
	if err != nil {
		return nil, fmt.Errorf("scheduler: list due markets: %w", err)
	}

	pending := make([]domain.ScheduledResolution, 0, len(markets))
	for _, m := range markets {
		pending = append(pending, domain.ScheduledResolution{
			MarketID:           m.ID,
			Question:           m.Question,
			DetailedType:       m.DetailedType,
			ResolutionCriteria: m.ResolutionCriteria,
			ClosingDate:        m.ClosingDate,
			Status:             domain.MarketStatusPending,
			Attempts:           0,
		})
	}
	return pending, nil
}

// ProcessMarketResolution resolves one market and persists the outcome.
// Engine failures never reach this level (the engine self-heals with its
// fallback); only a store write can fail here, and that failure triggers one
// remediating write marking the market closed/disputed so it cannot stay
// stuck in active forever.
func (s *Scheduler) ProcessMarketResolution(ctx context.Context, sr domain.ScheduledResolution) bool {
	log := s.logger.With(slog.String("market_id", sr.MarketID))

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "resolve:"+sr.MarketID, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				log.InfoContext(ctx, "resolution already in progress elsewhere, skipping")
				return false
			}
			// A lock-service outage must not stall resolutions; the
			// conditional store write still guarantees a single terminal
			// outcome.
			log.WarnContext(ctx, "lock acquisition failed, proceeding unlocked",
				slog.String("error", err.Error()),
			)
		} else {
			defer unlock()
		}
	}

	rec := s.engine.ResolveMarket(ctx, sr)

	upd := domain.ResolutionUpdate{
		Status:        domain.MarketStatusClosed,
		Resolution:    rec.Resolution,
		Data:          &rec.Data,
		ResolvedAt:    s.now().UTC(),
		DisputeReason: rec.DisputeReason,
	}

	if err := s.store.ApplyResolution(ctx, sr.MarketID, upd); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			log.InfoContext(ctx, "market already resolved by another writer")
			return false
		}

		log.ErrorContext(ctx, "resolution write failed, attempting remediating write",
			slog.String("error", err.Error()),
		)

		// Last-resort poison-pill guard: close the market as disputed so
		// it leaves the scheduler's eligible set.
		remediation := domain.ResolutionUpdate{
			Status:        domain.MarketStatusClosed,
			Resolution:    domain.ResolutionDisputed,
			ResolvedAt:    s.now().UTC(),
			DisputeReason: "resolution processing failed",
		}
		if err2 := s.store.ApplyResolution(ctx, sr.MarketID, remediation); err2 != nil && !errors.Is(err2, domain.ErrAlreadyResolved) {
			// The market stays active past its closing date. This is the
			// one gap the design does not close; alert on it.
			log.ErrorContext(ctx, "remediating write failed, market remains active",
				slog.String("error", err2.Error()),
			)
			s.notify(ctx, notify.EventResolutionError, "Resolution write failed",
				fmt.Sprintf("market %s could not be closed: %v", sr.MarketID, err2))
			return false
		}
		s.notify(ctx, notify.EventMarketDisputed, "Market closed as disputed",
			fmt.Sprintf("market %s was closed disputed after a write failure", sr.MarketID))
		return false
	}

	s.archive(ctx, rec, log)
	s.announce(ctx, sr, rec)

	log.InfoContext(ctx, "market resolution persisted",
		slog.String("resolution", string(rec.Resolution)),
		slog.Float64("confidence", rec.Data.Confidence),
		slog.Bool("fallback", rec.Fallback),
	)
	return true
}

// ProcessAllPendingResolutions processes every pending market found by
// CheckPendingResolutions. Markets are independent: one failing never aborts
// the batch. With Workers=1 processing is strictly sequential.
func (s *Scheduler) ProcessAllPendingResolutions(ctx context.Context) (int, error) {
	pending, err := s.CheckPendingResolutions(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	s.logger.InfoContext(ctx, "processing pending resolutions",
		slog.Int("count", len(pending)),
		slog.Int("workers", s.cfg.Workers),
	)

	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, sr := range pending {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.ErrorContext(gctx, "panic during market resolution",
						slog.String("market_id", sr.MarketID),
						slog.Any("panic", r),
					)
				}
			}()
			if s.ProcessMarketResolution(gctx, sr) {
				succeeded.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	done := int(succeeded.Load())
	s.logger.InfoContext(ctx, "resolution pass complete",
		slog.Int("resolved", done),
		slog.Int("attempted", len(pending)),
	)
	return done, nil
}

// Stats returns read-only aggregate counts; it has no side effects.
func (s *Scheduler) Stats(ctx context.Context) (domain.ResolutionStats, error) {
	var stats domain.ResolutionStats
	var err error

	if stats.Total, err = s.store.Count(ctx); err != nil {
		return stats, fmt.Errorf("scheduler: stats: %w", err)
	}
	if stats.Active, err = s.store.CountByStatus(ctx, domain.MarketStatusActive); err != nil {
		return stats, fmt.Errorf("scheduler: stats: %w", err)
	}
	if stats.Closed, err = s.store.CountByStatus(ctx, domain.MarketStatusClosed); err != nil {
		return stats, fmt.Errorf("scheduler: stats: %w", err)
	}
	now := s.now().UTC()
	if stats.PendingResolution, err = s.store.CountDue(ctx, now); err != nil {
		return stats, fmt.Errorf("scheduler: stats: %w", err)
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if stats.ResolvedToday, err = s.store.CountResolvedSince(ctx, midnight); err != nil {
		return stats, fmt.Errorf("scheduler: stats: %w", err)
	}
	return stats, nil
}

// Run drives resolution passes on a ticker until the context is cancelled.
// One pass runs immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler starting",
		slog.Duration("poll_interval", s.cfg.PollInterval),
	)

	if _, err := s.ProcessAllPendingResolutions(ctx); err != nil {
		s.logger.ErrorContext(ctx, "resolution pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.ProcessAllPendingResolutions(ctx); err != nil {
				s.logger.ErrorContext(ctx, "resolution pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archive best-effort uploads the record; archival failures never affect the
// resolution outcome.
func (s *Scheduler) archive(ctx context.Context, rec domain.ResolutionRecord, log *slog.Logger) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveResolution(ctx, rec); err != nil {
		log.WarnContext(ctx, "resolution archive failed",
			slog.String("error", err.Error()),
		)
	}
}

// announce emits the operator notification appropriate for the outcome.
func (s *Scheduler) announce(ctx context.Context, sr domain.ScheduledResolution, rec domain.ResolutionRecord) {
	switch {
	case rec.Fallback:
		s.notify(ctx, notify.EventResolutionFallback, "Fallback resolution used",
			fmt.Sprintf("market %s resolved %s via fallback: %s", sr.MarketID, rec.Resolution, rec.Data.Explanation))
	case rec.Resolution == domain.ResolutionDisputed:
		s.notify(ctx, notify.EventMarketDisputed, "Market resolved as disputed",
			fmt.Sprintf("market %s needs review: %s", sr.MarketID, rec.DisputeReason))
	default:
		s.notify(ctx, notify.EventMarketResolved, "Market resolved",
			fmt.Sprintf("market %s resolved %s (confidence %.2f)", sr.MarketID, rec.Resolution, rec.Data.Confidence))
	}
}

func (s *Scheduler) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
