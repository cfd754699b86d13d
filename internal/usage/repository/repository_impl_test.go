package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	usagedomain "github.com/inlethq/inlet/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (usagedomain.Repository, *gorm.DB, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&usagedomain.UsageRecord{}))

	// single connection so concurrent callers share one in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := Provide()
	tenantID := node.Generate()
	require.NoError(t, repo.Ensure(context.Background(), db, &usagedomain.UsageRecord{
		ID:        node.Generate(),
		TenantID:  tenantID,
		Period:    "2026-03",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))
	return repo, db, tenantID
}

func TestEnsureIsIdempotent(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, db, tenantID, "2026-03", usagedomain.CounterRequests, 7))

	node, _ := snowflake.NewNode(2)
	require.NoError(t, repo.Ensure(ctx, db, &usagedomain.UsageRecord{
		ID:        node.Generate(),
		TenantID:  tenantID,
		Period:    "2026-03",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}))

	record, err := repo.Find(ctx, db, tenantID, "2026-03")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(7), record.RequestCount, "re-ensuring an existing period must not reset counters")
}

func TestIncrementIfBelowStopsAtCeiling(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	applied := 0
	for i := 0; i < 10; i++ {
		ok, err := repo.IncrementIfBelow(ctx, db, tenantID, "2026-03", usagedomain.CounterRequests, 1, 5)
		require.NoError(t, err)
		if ok {
			applied++
		}
	}
	assert.Equal(t, 5, applied)

	record, err := repo.Find(ctx, db, tenantID, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, int64(5), record.RequestCount)
}

// The conditional UPDATE is the only thing standing between N concurrent
// reservations and an oversubscribed plan; exactly ceiling of them may win,
// and the stored counter must agree with the applied count.
func TestIncrementIfBelowConcurrentCallersNeverOversubscribe(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	const callers = 50
	const ceiling = 20

	var applied int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := repo.IncrementIfBelow(ctx, db, tenantID, "2026-03", usagedomain.CounterRequests, 1, ceiling)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt64(&applied, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(ceiling), atomic.LoadInt64(&applied))

	record, err := repo.Find(ctx, db, tenantID, "2026-03")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(ceiling), record.RequestCount)
}

func TestIncrementIfBelowExactFit(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	// delta that lands exactly on the ceiling is admitted
	ok, err := repo.IncrementIfBelow(ctx, db, tenantID, "2026-03", usagedomain.CounterStoredBytes, 100, 100)
	require.NoError(t, err)
	assert.True(t, ok)

	// the next byte is refused
	ok, err = repo.IncrementIfBelow(ctx, db, tenantID, "2026-03", usagedomain.CounterStoredBytes, 1, 100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementIfBelowUnknownPeriod(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)

	ok, err := repo.IncrementIfBelow(context.Background(), db, tenantID, "1999-01", usagedomain.CounterRequests, 1, 5)
	require.NoError(t, err)
	assert.False(t, ok, "no period row means nothing to reserve against")
}

func TestDecrementFloorsAtZero(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, db, tenantID, "2026-03", usagedomain.CounterWebhookCalls, 3))
	require.NoError(t, repo.Decrement(ctx, db, tenantID, "2026-03", usagedomain.CounterWebhookCalls, 10))

	record, err := repo.Find(ctx, db, tenantID, "2026-03")
	require.NoError(t, err)
	assert.Zero(t, record.WebhookCalls)
}

func TestUnknownCounterRejected(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)

	_, err := repo.IncrementIfBelow(context.Background(), db, tenantID, "2026-03", usagedomain.Counter("evil; DROP TABLE"), 1, 5)
	assert.Error(t, err)
}

func TestFindMissingPeriod(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)

	record, err := repo.Find(context.Background(), db, tenantID, "2030-01")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestPeriodsAreIndependentRows(t *testing.T) {
	repo, db, tenantID := newTestRepo(t)
	ctx := context.Background()

	node, _ := snowflake.NewNode(3)
	require.NoError(t, repo.Ensure(ctx, db, &usagedomain.UsageRecord{
		ID:       node.Generate(),
		TenantID: tenantID,
		Period:   "2026-04",
	}))

	require.NoError(t, repo.Increment(ctx, db, tenantID, "2026-03", usagedomain.CounterRequests, 5))
	require.NoError(t, repo.Increment(ctx, db, tenantID, "2026-04", usagedomain.CounterRequests, 1))

	march, err := repo.Find(ctx, db, tenantID, "2026-03")
	require.NoError(t, err)
	april, err := repo.Find(ctx, db, tenantID, "2026-04")
	require.NoError(t, err)

	assert.Equal(t, int64(5), march.RequestCount)
	assert.Equal(t, int64(1), april.RequestCount)
}
