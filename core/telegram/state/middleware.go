package state

import tele "gopkg.in/telebot.v4"

// ContextKey is the tele.Context key holding the chat's state when the update arrived.
const ContextKey = "fsm_state"

// WithSession records the chat's current state on the handler context for summary logging.
func WithSession(store Store) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if chat := c.Chat(); chat != nil {
				c.Set(ContextKey, string(store.Get(chat.ID).Current()))
			}
			return next(c)
		}
	}
}
