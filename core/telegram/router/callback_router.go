package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/donatebot/core/telegram"
	"github.com/m3rciful/donatebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	// NotFound overrides the registry fallback for unknown keys.
	NotFound tele.HandlerFunc
}

// CallbackRoute routes every callback query through the registry. Handlers
// answer the query themselves.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	h := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			skipped(c, "callback", time.Now())
			return nil
		}
		key, _ := callbacks.Parse(cb)
		keyAttr := slog.String("cb_key", key)

		if matched, handler, ok := reg.MatchCallback(key); ok {
			return run(c, "callback."+handlerName(matched), handler, keyAttr)
		}

		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		if fallback == nil {
			skipped(c, "callback.not_found", time.Now())
			return nil
		}
		return run(c, "callback.not_found", fallback, keyAttr)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: guarded(h)}
}
