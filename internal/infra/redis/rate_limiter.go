package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RateLimiter counts hits per aligned window: every caller in the same window
// increments "<key>:<window start>", which expires shortly after the window
// closes. Instances sharing Redis share the budget.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow reports whether one more hit fits into limit for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return true, nil
	}
	now := r.now()
	start := now.Truncate(window)
	bucket := key + ":" + strconv.FormatInt(start.Unix(), 10)

	count, err := r.client.Incr(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// expire a second after the window ends so late INCRs still see it
		if err := r.client.Expire(ctx, bucket, start.Add(window).Sub(now)+time.Second); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// UserActionKey is the limiter key for one user's action, e.g. "generate".
func UserActionKey(userID, action string) string {
	return "rate_limit:" + userID + ":" + action
}
