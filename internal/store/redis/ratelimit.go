// Package redis holds the hub's redis-backed adapters. Only the connect
// rate limiter lives here today.
package redis

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/parlorchat/parlor/internal/domain"
	redisclient "github.com/parlorchat/parlor/internal/redis"
)

var tracer = otel.Tracer("store.redis")

// connectRateScript atomically increments a counter and sets a TTL on the
// first write. This avoids the MULTI/EXEC approach which cannot
// conditionally EXPIRE only on the first increment, and avoids depending
// on EXPIRE ... NX (Redis 7.0+).
const connectRateScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

// ConnectLimiter bounds how fast one user may open new hub connections:
// a fixed window counter per user. Fail-closed: redis errors deny.
type ConnectLimiter struct {
	cmd    redisclient.Cmdable
	limit  int64
	window int
}

// ConnectLimiterConfig holds configuration for creating a ConnectLimiter.
// Zero Limit/Window fall back to the compiled defaults.
type ConnectLimiterConfig struct {
	Cmd           redisclient.Cmdable
	Limit         int64
	WindowSeconds int
}

// NewConnectLimiter creates a redis-backed connect rate limiter.
func NewConnectLimiter(cfg ConnectLimiterConfig) *ConnectLimiter {
	limit := cfg.Limit
	if limit == 0 {
		limit = domain.ConnectionRateLimit
	}
	window := cfg.WindowSeconds
	if window == 0 {
		window = int(domain.ConnectionRateLimitWindow.Seconds())
	}
	return &ConnectLimiter{cmd: cfg.Cmd, limit: limit, window: window}
}

// Allow returns nil when the user may connect, domain.ErrRateLimited when
// the window budget is spent, and domain.ErrUnavailable when redis cannot
// answer.
func (l *ConnectLimiter) Allow(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "redis.connect_rate.check")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVAL"),
	)

	key := fmt.Sprintf("connrate:%d", userID)
	count, err := l.cmd.Eval(ctx, connectRateScript, []string{key}, l.window).Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("connect rate check %q: %w", key, domain.ErrUnavailable)
	}
	if count > l.limit {
		return fmt.Errorf("user %d: %w", userID, domain.ErrRateLimited)
	}
	return nil
}
