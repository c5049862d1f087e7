package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// UsageLimiter caps how many language model invocations one learner may
// trigger per calendar day. The counter lives in Redis so the cap holds
// across instances; when Redis is unavailable the limiter fails open so a
// cache outage never blocks learning.
type UsageLimiter struct {
	redis      *RedisService
	dailyLimit int64
	now        func() time.Time
}

// NewUsageLimiter creates a limiter. A nil redis service or a non-positive
// limit disables limiting entirely.
func NewUsageLimiter(redis *RedisService, dailyLimit int) *UsageLimiter {
	return &UsageLimiter{
		redis:      redis,
		dailyLimit: int64(dailyLimit),
		now:        time.Now,
	}
}

// Allow counts one language model invocation for the learner and reports
// whether it may proceed.
func (u *UsageLimiter) Allow(ctx context.Context, userID string) error {
	if u == nil || u.redis == nil || u.dailyLimit <= 0 {
		return nil
	}

	key := fmt.Sprintf("llm_usage:%s:%s", userID, u.now().Format(dateKeyLayout))

	remaining, exceeded, err := u.redis.CheckRateLimit(ctx, key, u.dailyLimit, 24*time.Hour)
	if err != nil {
		log.Printf("⚠️  Usage limiter unavailable, failing open: %v", err)
		return nil
	}

	if exceeded {
		return ErrUsageLimitExceeded
	}

	if remaining <= 5 {
		log.Printf("⚠️  User %s has %d language model requests left today", userID, remaining)
	}

	return nil
}
