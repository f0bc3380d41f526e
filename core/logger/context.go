package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// fields is the per-update logging state carried in a context.
type fields struct {
	log      *slog.Logger
	rid      string
	handler  string
	updateID int
	userID   int64
	chatID   int64
}

func fieldsFrom(ctx context.Context) fields {
	if ctx == nil {
		return fields{}
	}
	f, _ := ctx.Value(ctxKey{}).(fields)
	return f
}

func withFields(ctx context.Context, set func(*fields)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	f := fieldsFrom(ctx)
	set(&f)
	return context.WithValue(ctx, ctxKey{}, f)
}

// WithLogger returns ctx carrying log. A nil log leaves ctx unchanged.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withFields(ctx, func(f *fields) { f.log = log })
}

// FromContext returns the logger stored by WithLogger, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if l := fieldsFrom(ctx).log; l != nil {
		return l
	}
	return L
}

// WithRID sets the correlation id added to every line logged with ctx.
func WithRID(ctx context.Context, rid string) context.Context {
	return withFields(ctx, func(f *fields) { f.rid = rid })
}

func RIDFrom(ctx context.Context) string {
	return fieldsFrom(ctx).rid
}

// WithUpdateMeta sets the update, user and chat ids of the current update.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withFields(ctx, func(f *fields) {
		f.updateID = updateID
		f.userID = userID
		f.chatID = chatID
	})
}

// WithHandler names the handler serving the update. Empty names are ignored.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withFields(ctx, func(f *fields) { f.handler = handler })
}

func HandlerFrom(ctx context.Context) string {
	return fieldsFrom(ctx).handler
}

func UpdateIDFrom(ctx context.Context) int {
	return fieldsFrom(ctx).updateID
}

func UserIDFrom(ctx context.Context) int64 {
	return fieldsFrom(ctx).userID
}

func ChatIDFrom(ctx context.Context) int64 {
	return fieldsFrom(ctx).chatID
}
