package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "metrics_counters"

type countersCtxKey struct{}

// Counters tracks outbound messages produced while handling one update.
type Counters struct {
	messages atomic.Int32
	kb       atomic.Bool
}

// Record counts one outbound message, noting whether it carried a keyboard.
func (c *Counters) Record(hasKB bool) {
	if c == nil {
		return
	}
	c.messages.Add(1)
	if hasKB {
		c.kb.Store(true)
	}
}

// CountersFrom returns the counters bound to ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(countersCtxKey{}).(*Counters)
	return c
}

// WithCounters binds counters to ctx.
func WithCounters(ctx context.Context, c *Counters) context.Context {
	return context.WithValue(ctx, countersCtxKey{}, c)
}

// MessageMetricsMiddleware attaches fresh counters to the update so outbound
// calls made through the stored context are reflected in the handler summary.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := c.Get(countersKey).(*Counters); ok {
			return next(c)
		}
		cnt := &Counters{}
		c.Set(countersKey, cnt)
		tghelpers.StoreContext(c, WithCounters(tghelpers.BuildContext(c), cnt))
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	cnt, ok := c.Get(countersKey).(*Counters)
	if !ok {
		return 0, false
	}
	return int(cnt.messages.Load()), cnt.kb.Load()
}
