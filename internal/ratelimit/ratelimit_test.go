package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
)

func newTestGate(t *testing.T) (*Gate, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cfg := config.RateLimitConfig{
		UniqueSearchWindow:      5 * time.Minute,
		UniqueSearchLimit:       10,
		UniqueSearchDailyLimit:  10,
		TotalRequestWindow:      5 * time.Minute,
		TotalRequestLimit:       200,
		TotalRequestDailyLimit:  2000,
		PaginationWindow:        3 * time.Second,
		PaginationLimit:         1,
		FreeTierMaxDateSpanDays: 3,
		FreeTierMaxStop:         2,
		FreeTierMaxODProduct:    4,
		FreeTierMaxPageSize:     10,
	}
	return New(client, cfg, logging.Context(context.Background())), srv
}

func baseRequest() Request {
	return Request{
		ClientID: "1.2.3.4",
		Core: CoreTuple{
			Origin:      "JFK",
			Destination: "LHR",
			MaxStop:     1,
			StartDate:   "2026-08-01",
			EndDate:     "2026-08-10",
		},
		HasAPIKey:    true,
		DateSpanDays: 2,
		MaxStop:      1,
		OriginCount:  1,
		DestCount:    1,
		PageSize:     10,
	}
}

func TestGate_FreeTier_RejectsOversizedDateSpan(t *testing.T) {
	g, _ := newTestGate(t)
	req := baseRequest()
	req.HasAPIKey = false
	req.DateSpanDays = 4

	err := g.Check(context.Background(), req)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindInvalidInput, appErr.Kind)
}

func TestGate_FreeTier_PermitsWithinLimits(t *testing.T) {
	g, _ := newTestGate(t)
	req := baseRequest()
	req.HasAPIKey = false

	require.NoError(t, g.Check(context.Background(), req))
}

func TestGate_UniqueSearch_LimitsDistinctTuplesButNotRepeats(t *testing.T) {
	g, _ := newTestGate(t)

	for i := 0; i < 10; i++ {
		req := baseRequest()
		req.Core.Origin = "JFK"
		req.Core.StartDate = time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		require.NoError(t, g.Check(context.Background(), req))
	}

	req := baseRequest()
	req.Core.StartDate = "2026-09-01"
	err := g.Check(context.Background(), req)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindRateLimited, appErr.Kind)
}

func TestGate_UniqueSearch_RepeatTupleOnlyTotalLimited(t *testing.T) {
	g, _ := newTestGate(t)
	req := baseRequest()

	for i := 0; i < 20; i++ {
		require.NoError(t, g.Check(context.Background(), req))
	}
}

func TestGate_Pagination_EnforcesSpacing(t *testing.T) {
	g, srv := newTestGate(t)
	req := baseRequest()
	req.IsPaginated = true

	require.NoError(t, g.Check(context.Background(), req))

	err := g.Check(context.Background(), req)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	require.Equal(t, apperror.KindRateLimited, appErr.Kind)

	srv.FastForward(3 * time.Second)
	require.NoError(t, g.Check(context.Background(), req))
}

func TestGate_RedisError_PermitsByDefault(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	srv.Close()

	cfg := config.RateLimitConfig{TotalRequestWindow: time.Minute, TotalRequestLimit: 1}
	g := New(client, cfg, logging.Context(context.Background()))

	req := baseRequest()
	require.NoError(t, g.Check(context.Background(), req))
}
