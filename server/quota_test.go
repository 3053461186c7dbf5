package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"anoo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCounter replaces the Redis counter in tests.
type memCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   bool
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}}
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, errors.New("counter down")
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Decr(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("counter down")
	}
	m.counts[key]--
	return nil
}

func (m *memCounter) Expire(context.Context, string, time.Duration) {}

func (m *memCounter) Get(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return 0, false, errors.New("counter down")
	}
	v, ok := m.counts[key]
	return v, ok, nil
}

func (m *memCounter) total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, v := range m.counts {
		sum += v
	}
	return sum
}

// memLedger replaces the Postgres ledger in tests.
type memLedger struct {
	mu      sync.Mutex
	entries []models.Generation
}

func (l *memLedger) CountImagesSince(deviceID string, since time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var used int64
	for _, g := range l.entries {
		if g.DeviceID == deviceID && g.Kind == models.GenerationKindImage && !g.CreatedAt.Before(since) {
			used++
		}
	}
	return used, nil
}

func (l *memLedger) Append(gen models.Generation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now()
	}
	l.entries = append(l.entries, gen)
	return nil
}

func (l *memLedger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func TestQuotaKey(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "aigen:dev-1:20250309", quotaKey("dev-1", at))

	// Local times key on the UTC day.
	kst := time.FixedZone("KST", 9*60*60)
	late := time.Date(2025, 3, 10, 8, 0, 0, 0, kst) // 2025-03-09 23:00 UTC
	assert.Equal(t, "aigen:dev-1:20250309", quotaKey("dev-1", late))
}

func TestUntilMidnightUTC(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, untilMidnightUTC(at))

	at = time.Date(2025, 3, 9, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, 24*time.Hour-time.Second, untilMidnightUTC(at))
}

func TestClampRemaining(t *testing.T) {
	assert.Equal(t, 5, clampRemaining(5, 0))
	assert.Equal(t, 2, clampRemaining(5, 3))
	assert.Equal(t, 0, clampRemaining(5, 5))
	assert.Equal(t, 0, clampRemaining(5, 9))
}

func TestQuota_ReserveCountsDownAndBlocks(t *testing.T) {
	ctx := context.Background()
	q := &Quota{counter: newMemCounter(), limit: 2}

	ok, err := q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, q.Remaining(ctx, "dev-1"))

	ok, err = q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, q.Remaining(ctx, "dev-1"))

	ok, err = q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok, "the limit-plus-one reservation must be refused")
	assert.Equal(t, 0, q.Remaining(ctx, "dev-1"), "a refused reservation must not consume quota")

	// Other devices are unaffected.
	ok, err = q.Reserve(ctx, "dev-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuota_ReleaseReturnsSlot(t *testing.T) {
	ctx := context.Background()
	q := &Quota{counter: newMemCounter(), limit: 1}

	ok, _ := q.Reserve(ctx, "dev-1")
	require.True(t, ok)
	ok, _ = q.Reserve(ctx, "dev-1")
	require.False(t, ok)

	q.Release(ctx, "dev-1")

	ok, err := q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ok, "a released slot must be reservable again")
}

func TestQuota_LedgerFallback(t *testing.T) {
	ctx := context.Background()
	ledger := &memLedger{}
	for i := 0; i < 4; i++ {
		require.NoError(t, ledger.Append(models.Generation{
			DeviceID: "dev-1", Kind: models.GenerationKindImage,
		}))
	}

	// No fast-path counter at all: the ledger carries the count.
	q := &Quota{ledger: ledger, limit: 5}
	ok, err := q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, q.Remaining(ctx, "dev-1"))

	require.NoError(t, ledger.Append(models.Generation{
		DeviceID: "dev-1", Kind: models.GenerationKindImage,
	}))
	ok, err = q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok, "the ledger count must enforce the limit when the counter is down")
	assert.Equal(t, 0, q.Remaining(ctx, "dev-1"))

	// Prompt generations never count against the image quota.
	require.NoError(t, ledger.Append(models.Generation{
		DeviceID: "dev-1", Kind: models.GenerationKindPrompt,
	}))
	assert.Equal(t, 0, q.Remaining(ctx, "dev-1"))
	assert.Equal(t, 5, q.Remaining(ctx, "dev-2"))
}

func TestQuota_CounterErrorFallsThroughToLedger(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	counter.fail = true
	ledger := &memLedger{}
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Append(models.Generation{
			DeviceID: "dev-1", Kind: models.GenerationKindImage,
		}))
	}

	q := &Quota{counter: counter, ledger: ledger, limit: 3}
	ok, err := q.Reserve(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, q.Remaining(ctx, "dev-1"))
}

func TestQuota_RecordAppendsToLedger(t *testing.T) {
	ledger := &memLedger{}
	q := &Quota{ledger: ledger, limit: 5}

	q.Record("dev-1", models.GenerationKindImage, "abc123")
	require.Equal(t, 1, ledger.len())
	assert.Equal(t, "dev-1", ledger.entries[0].DeviceID)
	assert.Equal(t, models.GenerationKindImage, ledger.entries[0].Kind)
	assert.Equal(t, "abc123", ledger.entries[0].PromptHash)
}

func TestQuota_FailsOpenWithoutCounters(t *testing.T) {
	q := NewQuota(nil, nil, 5)

	ok, err := q.Reserve(context.Background(), "dev-1")
	assert.NoError(t, err)
	assert.True(t, ok, "no counter and no ledger must not block generations")
	assert.Equal(t, 5, q.Remaining(context.Background(), "dev-1"))
}

func TestNewQuota_DefaultsLimit(t *testing.T) {
	assert.Equal(t, 5, NewQuota(nil, nil, 0).Limit())
	assert.Equal(t, 3, NewQuota(nil, nil, 3).Limit())
}
