package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/donatebot/core/logger"
	"github.com/m3rciful/donatebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the dispatcher used by SendText and SendHTML; nil
// makes them send inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// SenderStats reports the counters of the wired dispatcher.
func SenderStats() (sender.Stats, bool) {
	d := dispatcher.Load()
	if d == nil {
		return sender.Stats{}, false
	}
	return d.Stats(), true
}

// SendText replies to the current chat without waiting for the Bot API. The
// reply goes through the dispatcher when one is wired and has room, and is
// sent inline otherwise.
func SendText(c tele.Context, text string, opts *tele.SendOptions) error {
	send := func() error {
		if opts == nil {
			return c.Send(text)
		}
		return c.Send(text, opts)
	}
	d := dispatcher.Load()
	if d == nil {
		return send()
	}

	ctx := BuildContext(c)
	err := d.Enqueue(ctx, "sendMessage", send)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback", slog.String("err", err.Error()))
		return send()
	}
	return err
}

// SendHTML is SendText with HTML parse mode and an optional keyboard.
func SendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup})
}
