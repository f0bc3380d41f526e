package router

import (
	"time"

	tg "github.com/m3rciful/donatebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// FSM receives free text for chats in a conversation state.
type FSM interface {
	InProgress(chatID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes routes free text: chats inside a conversation go to the FSM,
// a bare command name ("start") runs that command unless it is admin-only,
// and everything else reaches UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	h := func(c tele.Context) error {
		if chat := c.Chat(); fsm != nil && chat != nil && fsm.InProgress(chat.ID) {
			return run(c, "fsm", fsm.ManagerHandler)
		}
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
				return run(c, handlerName(name), cmd.Handler)
			}
		}
		if opts.UnknownText != nil {
			return run(c, "unknown_text", opts.UnknownText)
		}
		skipped(c, "unknown_text", time.Now())
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: guarded(h)}}
}
