package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/donatebot/core/logger"
	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Machine dispatches free-text messages to the handler registered for the chat's current state.
type Machine struct {
	store Store

	mu       sync.RWMutex
	handlers map[State]tele.HandlerFunc
}

// NewMachine binds a Machine to the session store.
func NewMachine(store Store) *Machine {
	return &Machine{store: store, handlers: make(map[State]tele.HandlerFunc)}
}

// RegisterHandler associates a state with its handler.
func (m *Machine) RegisterHandler(st State, h tele.HandlerFunc) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[st] = h
}

func (m *Machine) handler(st State) (tele.HandlerFunc, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[st]
	return h, ok
}

// InProgress reports whether the chat's current state has a registered text handler.
func (m *Machine) InProgress(chatID int64) bool {
	_, ok := m.handler(m.store.Get(chatID).Current())
	return ok
}

// ManagerHandler executes the handler registered for the chat's current state, if any.
func (m *Machine) ManagerHandler(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	current := m.store.Get(chat.ID).Current()
	ctx := tghelpers.BuildContext(c)
	logger.Debug(ctx, "tg", "fsm.manager",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chat.ID),
		slog.String("state", string(current)),
	)

	if h, ok := m.handler(current); ok {
		return h(c)
	}
	return nil
}
