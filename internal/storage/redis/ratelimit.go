package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-orders/pkg/httpmiddleware"
)

// countScript increments the window counter, starting its expiry on the
// first hit, and returns the count with the remaining TTL in milliseconds.
var countScript = redis.NewScript(`
local n = redis.call("incr", KEYS[1])
if n == 1 then
	redis.call("pexpire", KEYS[1], ARGV[1])
end
return {n, redis.call("pttl", KEYS[1])}
`)

// RateLimiter is a fixed window limiter shared by all replicas.
type RateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

var _ httpmiddleware.Limiter = (*RateLimiter)(nil)

// NewRateLimiter allows limit requests per window and key.
func NewRateLimiter(rdb redis.Scripter, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window, prefix: "kart:ratelimit:"}
}

// Allow implements httpmiddleware.Limiter.
func (l *RateLimiter) Allow(ctx context.Context, key string) (httpmiddleware.Decision, error) {
	res, err := countScript.Run(ctx, l.rdb, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return httpmiddleware.Decision{}, errors.Wrap(err, "count request")
	}
	if len(res) != 2 {
		return httpmiddleware.Decision{}, errors.Errorf("unexpected script result %v", res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	return httpmiddleware.Decision{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
