// Package callbacks decodes inline button callback data into routing keys.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse splits callback data into a routing key and a payload.
//
// Buttons built with ReplyMarkup.Data arrive as "\f<unique>|<payload>" and
// telebot may already have split them into Unique and Data. Raw buttons
// carry their key verbatim with no payload.
func Parse(cb *tele.Callback) (key, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}

// Key is the routing key of the callback in c, or "".
func Key(c tele.Context) string {
	key, _ := Parse(c.Callback())
	return key
}

// Suffix returns what follows prefix in the routing key, e.g. "150" for
// "donate_150" and prefix "donate_".
func Suffix(c tele.Context, prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	return strings.CutPrefix(Key(c), prefix)
}
