package state

import "strconv"

// State identifies a finite-state-machine step used in conversations.
type State string

const (
	// StateIdle indicates there is no active conversation with the chat.
	StateIdle State = "idle"
	// StateMenuShown means the donation menu is on screen.
	StateMenuShown State = "menu_shown"
	// StateAwaitingCustomAmount means the next text message is read as an amount.
	StateAwaitingCustomAmount State = "awaiting_custom_amount"
	// StateInvoiceIssued is reported for a menu session with an outstanding invoice.
	// It is never stored.
	StateInvoiceIssued State = "invoice_issued"
)

// MessageRef points at a message the bot sent.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// MessageSig implements tele.Editable.
func (r MessageRef) MessageSig() (string, int64) {
	return strconv.Itoa(r.MessageID), r.ChatID
}

// Session is the conversation snapshot of a single chat.
type Session struct {
	State   State
	Menu    *MessageRef
	Invoice *MessageRef
}

// Current reports the effective step, deriving StateInvoiceIssued from the tracked invoice.
func (s Session) Current() State {
	if s.State == "" {
		return StateIdle
	}
	if s.State == StateMenuShown && s.Invoice != nil {
		return StateInvoiceIssued
	}
	return s.State
}

func (s Session) clone() Session {
	out := Session{State: s.State}
	if s.Menu != nil {
		m := *s.Menu
		out.Menu = &m
	}
	if s.Invoice != nil {
		inv := *s.Invoice
		out.Invoice = &inv
	}
	return out
}

// Store keeps sessions keyed by chat id. Implementations are safe for concurrent use.
type Store interface {
	// Get returns a copy of the session, or an idle session when none exists.
	Get(chatID int64) Session
	// Upsert applies fn to the session atomically, creating it when missing,
	// and returns a copy of the result.
	Upsert(chatID int64, fn func(*Session)) Session
	// Len reports the number of tracked sessions.
	Len() int
	// Close releases background resources.
	Close()
}
