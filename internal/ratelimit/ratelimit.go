// Package ratelimit implements the three orthogonal rate-limit policies of
// spec §4.3 (unique searches, total requests, pagination requests) plus the
// free-tier validations applied when a caller has no API key. Counters live
// in Redis as fixed-window counts (INCR + conditional EXPIRE), the same
// atomic-counter idiom the teacher's cache layer uses for its KV
// operations. Any Redis error is treated as a permit: the gate must never
// turn an infrastructure hiccup into a hard failure for callers.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hachrisjordan/award-itin-engine/internal/apperror"
	"github.com/hachrisjordan/award-itin-engine/internal/config"
	"github.com/hachrisjordan/award-itin-engine/internal/logging"
)

// CoreTuple identifies a "unique search" per §4.3: origin, destination,
// maxStop, startDate, endDate. Two requests with the same tuple are the
// same search regardless of cabin, carriers, pagination or filters.
type CoreTuple struct {
	Origin      string
	Destination string
	MaxStop     int
	StartDate   string
	EndDate     string
}

func (t CoreTuple) hash() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s|%s", t.Origin, t.Destination, t.MaxStop, t.StartDate, t.EndDate)))
	return hex.EncodeToString(sum[:])
}

// Request is the subset of an incoming request the gate needs to evaluate
// all three policies plus the free-tier validations in one pass.
type Request struct {
	ClientID    string
	Core        CoreTuple
	HasAPIKey   bool
	IsPaginated bool // page > 1 OR pageSize explicit

	DateSpanDays   int
	MaxStop        int
	OriginCount    int
	DestCount      int
	PageSize       int
}

// Gate enforces §4.3's policies over a Redis-backed counter store.
type Gate struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	logger logging.Logger
}

// New builds a Gate. client may be nil only in tests that don't exercise
// the Redis path.
func New(client *redis.Client, cfg config.RateLimitConfig, logger logging.Logger) *Gate {
	return &Gate{client: client, cfg: cfg, logger: logger.With("component", "ratelimit")}
}

// Check runs the free-tier validations (if no API key) and all three
// counter policies. It returns *apperror.Error (Kind=RateLimited or
// InvalidInput) on the first violation, nil on permit.
func (g *Gate) Check(ctx context.Context, req Request) error {
	if !req.HasAPIKey {
		if err := g.checkFreeTier(req); err != nil {
			return err
		}
	}

	if err := g.checkPagination(ctx, req); err != nil {
		return err
	}

	if err := g.checkUniqueSearch(ctx, req); err != nil {
		return err
	}

	if err := g.checkTotalRequests(ctx, req); err != nil {
		return err
	}

	return nil
}

func (g *Gate) checkFreeTier(req Request) error {
	switch {
	case req.DateSpanDays > g.cfg.FreeTierMaxDateSpanDays:
		return apperror.InvalidInput("free tier date span exceeds limit", map[string]string{
			"reason": fmt.Sprintf("dateSpanDays %d exceeds free-tier max %d", req.DateSpanDays, g.cfg.FreeTierMaxDateSpanDays),
		})
	case req.MaxStop > g.cfg.FreeTierMaxStop:
		return apperror.InvalidInput("free tier maxStop exceeds limit", map[string]string{
			"reason": fmt.Sprintf("maxStop %d exceeds free-tier max %d", req.MaxStop, g.cfg.FreeTierMaxStop),
		})
	case req.OriginCount*req.DestCount > g.cfg.FreeTierMaxODProduct:
		return apperror.InvalidInput("free tier origin/destination product exceeds limit", map[string]string{
			"reason": fmt.Sprintf("origin*destination product %d exceeds free-tier max %d", req.OriginCount*req.DestCount, g.cfg.FreeTierMaxODProduct),
		})
	case req.PageSize > g.cfg.FreeTierMaxPageSize:
		return apperror.InvalidInput("free tier pageSize exceeds limit", map[string]string{
			"reason": fmt.Sprintf("pageSize %d exceeds free-tier max %d", req.PageSize, g.cfg.FreeTierMaxPageSize),
		})
	}
	return nil
}

func (g *Gate) checkPagination(ctx context.Context, req Request) error {
	if !req.IsPaginated {
		return nil
	}
	key := fmt.Sprintf("rl:page:%s:%s", req.ClientID, req.Core.hash())
	allowed, retryAfter, err := g.allow(ctx, key, g.cfg.PaginationWindow, g.cfg.PaginationLimit)
	if err != nil {
		g.logger.Warn("pagination counter check failed, permitting", "error", err)
		return nil
	}
	if !allowed {
		return apperror.RateLimited(retryAfter, "pagination requests must be spaced by the configured window")
	}
	return nil
}

func (g *Gate) checkUniqueSearch(ctx context.Context, req Request) error {
	if req.IsPaginated {
		return nil
	}

	windowKey := fmt.Sprintf("rl:unique:window:%s:%s", req.ClientID, req.Core.hash())
	dailyKey := fmt.Sprintf("rl:unique:daily:%s:%s", req.ClientID, dayBucket())

	firstSeen, err := g.markSeen(ctx, windowKey, g.cfg.UniqueSearchWindow)
	if err != nil {
		g.logger.Warn("unique-search window check failed, permitting", "error", err)
		return nil
	}
	if !firstSeen {
		// Same tuple already counted within the window: total-request-limited only.
		return nil
	}

	allowed, retryAfter, err := g.allow(ctx, fmt.Sprintf("rl:unique:count:%s", req.ClientID), g.cfg.UniqueSearchWindow, g.cfg.UniqueSearchLimit)
	if err != nil {
		g.logger.Warn("unique-search count check failed, permitting", "error", err)
		return nil
	}
	if !allowed {
		return apperror.RateLimited(retryAfter, "unique search rate limit exceeded")
	}

	dailyAllowed, dailyRetry, err := g.allow(ctx, dailyKey, 24*time.Hour, g.cfg.UniqueSearchDailyLimit)
	if err != nil {
		g.logger.Warn("unique-search daily check failed, permitting", "error", err)
		return nil
	}
	if !dailyAllowed {
		return apperror.RateLimited(dailyRetry, "unique search daily limit exceeded")
	}

	return nil
}

func (g *Gate) checkTotalRequests(ctx context.Context, req Request) error {
	windowKey := fmt.Sprintf("rl:total:count:%s", req.ClientID)
	allowed, retryAfter, err := g.allow(ctx, windowKey, g.cfg.TotalRequestWindow, g.cfg.TotalRequestLimit)
	if err != nil {
		g.logger.Warn("total-request window check failed, permitting", "error", err)
		return nil
	}
	if !allowed {
		return apperror.RateLimited(retryAfter, "total request rate limit exceeded")
	}

	dailyKey := fmt.Sprintf("rl:total:daily:%s:%s", req.ClientID, dayBucket())
	dailyAllowed, dailyRetry, err := g.allow(ctx, dailyKey, 24*time.Hour, g.cfg.TotalRequestDailyLimit)
	if err != nil {
		g.logger.Warn("total-request daily check failed, permitting", "error", err)
		return nil
	}
	if !dailyAllowed {
		return apperror.RateLimited(dailyRetry, "total request daily limit exceeded")
	}

	return nil
}

// allow increments the fixed-window counter at key and reports whether the
// result stays within limit, along with seconds remaining in the window
// when it does not.
func (g *Gate) allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, error) {
	count, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := g.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}
	if int(count) > limit {
		ttl, err := g.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			return false, int(window.Seconds()), nil
		}
		return false, int(ttl.Seconds()), nil
	}
	return true, 0, nil
}

// markSeen reports whether this is the first time key has been seen within
// window (true) or a repeat (false).
func (g *Gate) markSeen(ctx context.Context, key string, window time.Duration) (bool, error) {
	set, err := g.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, err
	}
	return set, nil
}

func dayBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}
