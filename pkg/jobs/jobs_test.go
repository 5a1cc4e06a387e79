package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/middleware"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/testutil"
)

func TestScheduler_AddRejectsBadJobs(t *testing.T) {
	s := NewScheduler(nil)

	err := s.Add(Job{Name: "broken", Schedule: "not a schedule", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
	assert.Error(t, s.Add(Job{Schedule: "@every 1m"}))
	assert.Empty(t, s.Jobs())

	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "*/5 * * * *", Run: func(context.Context) error { return nil }}))
	require.Len(t, s.Jobs(), 1)
	assert.Equal(t, time.Minute, s.Jobs()[0].Timeout)
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler(observability.NopLogger())

	var ran atomic.Int32
	require.NoError(t, s.Add(Job{Name: "ok", Schedule: "@every 1h", Run: func(context.Context) error {
		ran.Add(1)
		return nil
	}}))
	require.NoError(t, s.Add(Job{Name: "fails", Schedule: "@every 1h", Run: func(context.Context) error {
		ran.Add(1)
		return errors.New("boom")
	}}))
	require.NoError(t, s.Add(Job{Name: "panics", Schedule: "@every 1h", Run: func(context.Context) error {
		ran.Add(1)
		panic("kaboom")
	}}))

	errs := s.RunOnce(context.Background())
	assert.Equal(t, int32(3), ran.Load())
	assert.Len(t, errs, 2)
}

func TestScheduler_TimeoutIsApplied(t *testing.T) {
	s := NewScheduler(nil)
	require.NoError(t, s.Add(Job{Name: "slow", Schedule: "@every 1h", Timeout: 10 * time.Millisecond, Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	errs := s.RunOnce(context.Background())
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(nil)

	ran := make(chan struct{}, 10)
	require.NoError(t, s.Add(Job{Name: "tick", Schedule: "@every 1s", Run: func(context.Context) error {
		ran <- struct{}{}
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not scheduled")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.NoError(t, s.Stop(stopCtx))
}

func TestStatsCollector_Refresh(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	svc := catalog.NewService(store, observability.NopLogger())
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	air := testutil.Category(t, store, "Aire", "filtro")
	oil := testutil.Category(t, store, "Aceite", "filtro")
	testutil.Category(t, store, "Vacia", "general")
	testutil.Filter(t, store, "FLT-AIR-0001", air.ID, 1000, catalog.VehicleCriteria{})
	testutil.Filter(t, store, "FLT-AIR-0002", air.ID, 1000, catalog.VehicleCriteria{})
	oilFilter := testutil.Filter(t, store, "FLT-OIL-0001", oil.ID, 1000, catalog.VehicleCriteria{})

	c := NewStatsCollector(svc, store.DB(), metrics)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, 3.0, promtestutil.ToFloat64(metrics.FiltersActive))
	assert.Equal(t, 3.0, promtestutil.ToFloat64(metrics.CategoriesActive))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.FiltersByCategory.WithLabelValues("Aire")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(metrics.FiltersByCategory.WithLabelValues("Aceite")))
	assert.GreaterOrEqual(t, promtestutil.ToFloat64(metrics.DBConnectionsOpen), 1.0)

	require.NoError(t, svc.DeleteFilter(context.Background(), oilFilter.ID))
	require.NoError(t, c.Job("@every 1m").Run(context.Background()))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(metrics.FiltersActive))
	assert.Equal(t, 1, promtestutil.CollectAndCount(metrics.FiltersByCategory), "emptied categories are dropped")
}

type failingStats struct{}

func (failingStats) FilterStatistics(context.Context) (*catalog.FilterStats, error) {
	return nil, errors.New("db down")
}

func (failingStats) CategoryStatistics(context.Context) (*catalog.CategoryStats, error) {
	return &catalog.CategoryStats{}, nil
}

func TestStatsCollector_Error(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := NewStatsCollector(failingStats{}, nil, metrics)
	assert.ErrorContains(t, c.Refresh(context.Background()), "db down")
}

func TestCleanupJob(t *testing.T) {
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	_, err := rl.Allow(context.Background(), "ip:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, rl.Len())

	job := CleanupJob("rate limiter cleanup", "@every 5m", rl, nil)
	assert.Equal(t, "@every 5m", job.Schedule)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, rl.Len(), "current windows are kept")
}
