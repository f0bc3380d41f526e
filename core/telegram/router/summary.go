// Package router turns registry entries into telebot routes. Every route
// recovers panics, sets up the update context and logs one handler.handled
// summary per update.
package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/donatebot/core/logger"
	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"
	"github.com/m3rciful/donatebot/core/telegram/middleware"
	"github.com/m3rciful/donatebot/core/telegram/netutil"
	"github.com/m3rciful/donatebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

const (
	statusOK   = "ok"
	statusFail = "fail"
	statusSkip = "skip"
)

// guarded wraps an update handler with the recover and logger middleware.
func guarded(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}

// named is guarded plus a summary under a fixed handler name.
func named(name string, h tele.HandlerFunc) tele.HandlerFunc {
	return guarded(func(c tele.Context) error {
		return run(c, name, h)
	})
}

// run calls h and logs its summary.
func run(c tele.Context, name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := h(c)
	status := statusOK
	if err != nil {
		status = statusFail
	}
	summarize(ctx, c, name, status, time.Since(start), err, extras...)
	return err
}

// skipped logs a summary for an update no handler took.
func skipped(c tele.Context, name string, start time.Time) {
	summarize(tghelpers.WithHandler(c, name), c, name, statusSkip, time.Since(start), nil)
}

func summarize(ctx context.Context, c tele.Context, name, status string, took time.Duration, err error, extras ...slog.Attr) {
	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(took).Milliseconds()),
	}
	if st, _ := c.Get(state.ContextKey).(string); st != "" {
		attrs = append(attrs, slog.String("state", st))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func handlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.ReplaceAll(name, " ", "_")
}

// errorCode names err for dashboards: the Bot API failure class when there
// is one, the innermost error type otherwise.
func errorCode(err error) string {
	if kind := netutil.Kind(err); kind != netutil.KindUnknown {
		return strings.ToUpper(kind)
	}
	for inner := errors.Unwrap(err); inner != nil; inner = errors.Unwrap(inner) {
		err = inner
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" || t.Name() == "errorString" {
		return "ERROR"
	}
	return strings.ToUpper(t.Name())
}
