package middleware

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/donatebot/core/logger"
	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"
	"github.com/maypok86/otter"

	tele "gopkg.in/telebot.v4"
)

const rateLimitCapacity = 10_000

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// UpdateKind classifies an update for rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.PreCheckoutQuery != nil:
		return "pre_checkout"
	case upd.Message != nil && upd.Message.Payment != nil:
		return "payment"
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user. Pre-checkout queries and payment
// confirmations always pass: Telegram expects a timely answer to both.
func RateLimitMiddleware(opts RateLimitOptions) (tele.MiddlewareFunc, error) {
	ttl := opts.Interval
	if ttl <= 0 {
		ttl = time.Second
	}
	lastSeen, err := otter.MustBuilder[int64, time.Time](rateLimitCapacity).WithTTL(ttl).Build()
	if err != nil {
		return nil, fmt.Errorf("rate limit: build cache: %w", err)
	}
	var mu sync.Mutex

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			kind := UpdateKind(c.Update())
			if kind == "pre_checkout" || kind == "payment" {
				return next(c)
			}
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			now := time.Now()
			mu.Lock()
			if last, ok := lastSeen.Get(user.ID); ok && now.Sub(last) < opts.Interval {
				mu.Unlock()
				logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
					slog.String("kind", kind),
					slog.Duration("interval", opts.Interval),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen.Set(user.ID, now)
			mu.Unlock()
			return next(c)
		}
	}, nil
}
