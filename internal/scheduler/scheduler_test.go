package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/domain"
	"github.com/resolverd/resolverd/internal/notify"
)

var testNow = time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory MarketStore with scriptable write failures.
type fakeStore struct {
	mu         sync.Mutex
	markets    map[string]domain.Market
	failWrites map[string]int // remaining ApplyResolution failures per market
}

func newFakeStore(markets ...domain.Market) *fakeStore {
	s := &fakeStore{
		markets:    make(map[string]domain.Market),
		failWrites: make(map[string]int),
	}
	for _, m := range markets {
		s.markets[m.ID] = m
	}
	return s
}

func (s *fakeStore) Upsert(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeStore) ListDue(ctx context.Context, before time.Time, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.Market
	for _, m := range s.markets {
		if m.DueForResolution(before) {
			due = append(due, m)
		}
	}
	return due, nil
}

func (s *fakeStore) ApplyResolution(ctx context.Context, id string, upd domain.ResolutionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failWrites[id]; n > 0 {
		s.failWrites[id] = n - 1
		return errors.New("store write failed")
	}
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.Status != domain.MarketStatusActive {
		return domain.ErrAlreadyResolved
	}
	m.Status = upd.Status
	m.Resolution = upd.Resolution
	m.ResolutionData = upd.Data
	m.DisputeReason = upd.DisputeReason
	resolvedAt := upd.ResolvedAt
	m.ResolvedAt = &resolvedAt
	s.markets[id] = m
	return nil
}

func (s *fakeStore) CountByStatus(ctx context.Context, status domain.MarketStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.markets {
		if m.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountDue(ctx context.Context, before time.Time) (int64, error) {
	due, _ := s.ListDue(ctx, before, domain.ListOpts{})
	return int64(len(due)), nil
}

func (s *fakeStore) CountResolvedSince(ctx context.Context, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.markets {
		if m.ResolvedAt != nil && !m.ResolvedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

// fakeResolver returns a fixed yes record for every market.
type fakeResolver struct {
	mu       sync.Mutex
	resolved []string
}

func (r *fakeResolver) ResolveMarket(ctx context.Context, sr domain.ScheduledResolution) domain.ResolutionRecord {
	r.mu.Lock()
	r.resolved = append(r.resolved, sr.MarketID)
	r.mu.Unlock()
	return domain.ResolutionRecord{
		ID:          "rec-" + sr.MarketID,
		MarketID:    sr.MarketID,
		Resolution:  domain.ResolutionYes,
		DisputeRisk: domain.DisputeRiskLow,
		Data: domain.ResolutionData{
			FinalPrice:          2.4,
			ResolutionTimestamp: testNow,
			DataSource:          "fake",
			Confidence:          0.9,
		},
	}
}

func activeMarket(id string, closing time.Time) domain.Market {
	return domain.Market{
		ID:           id,
		Question:     "Will WIF reach $2.50?",
		DetailedType: domain.QuestionPrice,
		ClosingDate:  closing,
		Status:       domain.MarketStatusActive,
	}
}

func newTestScheduler(store domain.MarketStore) (*Scheduler, *fakeResolver) {
	resolver := &fakeResolver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, resolver, nil, nil, nil, DefaultConfig(), logger)
	s.now = func() time.Time { return testNow }
	return s, resolver
}

func TestCheckPendingResolutions_OnlyDueActiveMarkets(t *testing.T) {
	store := newFakeStore(
		activeMarket("due-1", testNow.Add(-time.Hour)),
		activeMarket("future", testNow.Add(time.Hour)),
		func() domain.Market {
			m := activeMarket("closed", testNow.Add(-time.Hour))
			m.Status = domain.MarketStatusClosed
			return m
		}(),
	)
	s, _ := newTestScheduler(store)

	pending, err := s.CheckPendingResolutions(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "due-1", pending[0].MarketID)
	assert.Equal(t, domain.MarketStatusPending, pending[0].Status)
	assert.Equal(t, 0, pending[0].Attempts)
}

func TestProcessMarketResolution_PersistsTerminalState(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	s, _ := newTestScheduler(store)

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.True(t, ok)

	m, err := store.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusClosed, m.Status)
	assert.Equal(t, domain.ResolutionYes, m.Resolution)
	require.NotNil(t, m.ResolvedAt)
	assert.Equal(t, testNow, *m.ResolvedAt)
	require.NotNil(t, m.ResolutionData)
	assert.Equal(t, 0.9, m.ResolutionData.Confidence)
}

func TestTerminalStateIsIdempotent(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	s, resolver := newTestScheduler(store)

	n, err := s.ProcessAllPendingResolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second pass: the closed market must not be selected again.
	n, err = s.ProcessAllPendingResolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, resolver.resolved, 1)
}

func TestProcessMarketResolution_LostRace(t *testing.T) {
	m := activeMarket("m1", testNow.Add(-time.Minute))
	m.Status = domain.MarketStatusClosed
	store := newFakeStore(m)
	s, _ := newTestScheduler(store)

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.False(t, ok)
}

func TestProcessMarketResolution_PoisonPillRemediation(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	store.failWrites["m1"] = 1 // first write fails, remediation succeeds
	s, _ := newTestScheduler(store)

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.False(t, ok)

	// The market must not stay active: the remediating write closes it as
	// disputed.
	m, err := store.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusClosed, m.Status)
	assert.Equal(t, domain.ResolutionDisputed, m.Resolution)
	assert.Equal(t, "resolution processing failed", m.DisputeReason)
}

func TestBatchIsolation(t *testing.T) {
	store := newFakeStore(
		activeMarket("m1", testNow.Add(-3*time.Minute)),
		activeMarket("m2", testNow.Add(-2*time.Minute)),
		activeMarket("m3", testNow.Add(-time.Minute)),
	)
	// m2's writes fail entirely, including the remediation.
	store.failWrites["m2"] = 2
	s, resolver := newTestScheduler(store)

	n, err := s.ProcessAllPendingResolutions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, resolver.resolved, 3)

	for _, id := range []string{"m1", "m3"} {
		m, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.MarketStatusClosed, m.Status, id)
	}
	m2, err := store.GetByID(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusActive, m2.Status)
}

// fakeNotifier records the event name of every notification.
type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func TestAnnounce_EmitsWellKnownEventNames(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	resolver := &fakeResolver{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, resolver, nil, nil, notifier, DefaultConfig(), logger)
	s.now = func() time.Time { return testNow }

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.True(t, ok)
	assert.Equal(t, []string{notify.EventMarketResolved}, notifier.events)
}

func TestRemediation_EmitsDisputedEvent(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	store.failWrites["m1"] = 1
	resolver := &fakeResolver{}
	notifier := &fakeNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(store, resolver, nil, nil, notifier, DefaultConfig(), logger)
	s.now = func() time.Time { return testNow }

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.False(t, ok)
	assert.Equal(t, []string{notify.EventMarketDisputed}, notifier.events)
}

type fakeLocks struct {
	held map[string]bool
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

func TestProcessMarketResolution_SkipsWhenLockHeld(t *testing.T) {
	store := newFakeStore(activeMarket("m1", testNow.Add(-time.Minute)))
	resolver := &fakeResolver{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := &fakeLocks{held: map[string]bool{"resolve:m1": true}}
	s := New(store, resolver, locks, nil, nil, DefaultConfig(), logger)
	s.now = func() time.Time { return testNow }

	ok := s.ProcessMarketResolution(context.Background(), domain.ScheduledResolution{MarketID: "m1"})
	assert.False(t, ok)
	assert.Empty(t, resolver.resolved)

	// The market stays active for the holder (or a later tick) to finish.
	m, _ := store.GetByID(context.Background(), "m1")
	assert.Equal(t, domain.MarketStatusActive, m.Status)
}

func TestStats(t *testing.T) {
	resolvedAt := testNow.Add(-time.Hour)
	closed := activeMarket("c1", testNow.Add(-2*time.Hour))
	closed.Status = domain.MarketStatusClosed
	closed.Resolution = domain.ResolutionYes
	closed.ResolvedAt = &resolvedAt

	store := newFakeStore(
		closed,
		activeMarket("a1", testNow.Add(-time.Minute)),
		activeMarket("a2", testNow.Add(time.Hour)),
	)
	s, _ := newTestScheduler(store)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.Closed)
	assert.Equal(t, int64(1), stats.PendingResolution)
	assert.Equal(t, int64(1), stats.ResolvedToday)
}
