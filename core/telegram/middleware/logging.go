package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/donatebot/core/logger"
	"github.com/m3rciful/donatebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"
	"github.com/maypok86/otter"

	tele "gopkg.in/telebot.v4"
)

const (
	ridKey      = "rid"
	keepFor     = 10 * time.Second
	recentLimit = 4096
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentOnce    sync.Once
	recentMu      sync.Mutex
	recentUpdates *otter.Cache[int, struct{}]
)

func alreadyLogged(updateID int) bool {
	recentOnce.Do(func() {
		c, err := otter.MustBuilder[int, struct{}](recentLimit).WithTTL(keepFor).Build()
		if err == nil {
			recentUpdates = &c
		}
	})
	if recentUpdates == nil {
		return false
	}
	recentMu.Lock()
	defer recentMu.Unlock()
	if _, ok := recentUpdates.Get(updateID); ok {
		return true
	}
	recentUpdates.Set(updateID, struct{}{})
	return false
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
// It runs once per context, so applying it globally and per route is safe.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get(ridKey).(string); rid != "" {
			return next(c)
		}

		upd := c.Update()
		_, chatID, userID := tghelpers.UpdateIDs(c)
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set(ridKey, rid)
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("rid", rid),
				slog.Int("update_id", upd.ID),
			}
			if chatID != 0 {
				attrs = append(attrs, slog.Int64("chat_id", chatID))
				attrs = append(attrs, slog.String("chat_type", string(c.Chat().Type)))
			}
			if user := c.Sender(); user != nil {
				attrs = append(attrs, slog.Int64("user_id", userID))
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}
			attrs = append(attrs, updateAttrs(c, upd)...)
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

func updateAttrs(c tele.Context, upd tele.Update) []slog.Attr {
	switch {
	case upd.Callback != nil:
		var attrs []slog.Attr
		key, payload := callbacks.Parse(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
		return attrs
	case upd.PreCheckoutQuery != nil:
		q := upd.PreCheckoutQuery
		return []slog.Attr{
			slog.String("kind", "pre_checkout"),
			slog.String("payload", logger.SanitizeLimit(q.Payload, 128)),
			slog.String("currency", q.Currency),
			slog.Int("amount_minor", q.Total),
		}
	case upd.Message != nil && upd.Message.Payment != nil:
		p := upd.Message.Payment
		return []slog.Attr{
			slog.String("kind", "payment"),
			slog.String("payload", logger.SanitizeLimit(p.Payload, 128)),
			slog.String("currency", p.Currency),
			slog.Int("amount_minor", p.Total),
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			return []slog.Attr{slog.String("payload", logger.SanitizeLimit(t, 256))}
		}
	}
	return nil
}
