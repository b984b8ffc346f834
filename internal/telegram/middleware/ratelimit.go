package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/futig/knowledge-console/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	bucketIdleTTL   = time.Hour
	bucketSweep     = 10 * time.Minute
	warningInterval = 30 * time.Second
)

// bucket is one user's token bucket.
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	warnings int
	warnedAt time.Time
}

// RateLimiter keeps a token bucket per user. Buckets of users who went
// quiet expire from the cache.
type RateLimiter struct {
	buckets  *cache.Cache
	create   sync.Mutex
	capacity float64
	perSec   float64
	bot      Sender
	now      func() time.Time
}

// NewRateLimiter allows perMinute updates per user on average with bursts
// of up to burst. A non-positive burst means a full minute's worth.
func NewRateLimiter(perMinute, burst int, bot Sender) *RateLimiter {
	capacity := float64(perMinute)
	if burst > 0 {
		capacity = float64(burst)
	}
	return &RateLimiter{
		buckets:  cache.New(bucketIdleTTL, bucketSweep),
		capacity: capacity,
		perSec:   float64(perMinute) / 60,
		bot:      bot,
		now:      time.Now,
	}
}

// Middleware drops updates from users over their budget.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next UpdateFunc) UpdateFunc {
		return func(ctx context.Context, update tgbotapi.Update) {
			o, ok := OriginOf(update)
			if !ok {
				next(ctx, update)
				return
			}

			allowed, warning := rl.take(o.UserID)
			if allowed {
				next(ctx, update)
				return
			}

			ctxzap.Warn(ctx, "rate limit exceeded",
				zap.Int64("user_id", o.UserID),
				zap.Int64("chat_id", o.ChatID),
			)
			if warning == "" {
				return
			}
			if _, err := rl.bot.Send(tgbotapi.NewMessage(o.ChatID, warning)); err != nil {
				ctxzap.Error(ctx, "failed to send rate limit warning", zap.Error(err))
			}
		}
	}
}

// take spends a token. When none is left it returns the warning to show,
// empty if the user was warned recently.
func (rl *RateLimiter) take(userID int64) (bool, string) {
	b := rl.bucket(userID)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	b.tokens += now.Sub(b.refilled).Seconds() * rl.perSec
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.refilled = now

	if b.tokens >= 1 {
		b.tokens--
		b.warnings = 0
		return true, ""
	}

	if !b.warnedAt.IsZero() && now.Sub(b.warnedAt) <= warningInterval {
		return false, ""
	}
	b.warnings++
	b.warnedAt = now
	return false, warningText(b.warnings)
}

func (rl *RateLimiter) bucket(userID int64) *bucket {
	key := strconv.FormatInt(userID, 10)

	rl.create.Lock()
	defer rl.create.Unlock()

	if v, ok := rl.buckets.Get(key); ok {
		b := v.(*bucket)
		// sliding expiry
		rl.buckets.SetDefault(key, b)
		return b
	}
	b := &bucket{tokens: rl.capacity, refilled: rl.now()}
	rl.buckets.SetDefault(key, b)
	return b
}

func warningText(count int) string {
	switch count {
	case 1:
		return render.MsgSlowDown
	case 2:
		return render.MsgRateLimited
	default:
		return render.MsgTooOften
	}
}
