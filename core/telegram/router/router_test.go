package router

import (
	"testing"

	tg "github.com/m3rciful/donatebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	upd       tele.Update
	store     map[string]any
	responded int
}

func newStubContext(upd tele.Update) *stubContext {
	return &stubContext{upd: upd, store: map[string]any{}}
}

func (s *stubContext) Update() tele.Update      { return s.upd }
func (s *stubContext) Get(k string) any         { return s.store[k] }
func (s *stubContext) Set(k string, v any)      { s.store[k] = v }
func (s *stubContext) Callback() *tele.Callback { return s.upd.Callback }
func (s *stubContext) Respond(...*tele.CallbackResponse) error {
	s.responded++
	return nil
}

func (s *stubContext) Sender() *tele.User {
	switch {
	case s.upd.Callback != nil:
		return s.upd.Callback.Sender
	case s.upd.Message != nil:
		return s.upd.Message.Sender
	}
	return nil
}

func (s *stubContext) Chat() *tele.Chat {
	if s.upd.Message != nil {
		return s.upd.Message.Chat
	}
	return nil
}

func (s *stubContext) Text() string {
	if s.upd.Message != nil {
		return s.upd.Message.Text
	}
	return ""
}

var (
	user = &tele.User{ID: 5}
	chat = &tele.Chat{ID: 5}
)

func callbackUpdate(data string) tele.Update {
	return tele.Update{ID: 1, Callback: &tele.Callback{ID: "q", Sender: user, Data: data}}
}

func textUpdate(text string) tele.Update {
	return tele.Update{ID: 2, Message: &tele.Message{ID: 3, Sender: user, Chat: chat, Text: text}}
}

func TestCallbackRoutePrefersExactKey(t *testing.T) {
	reg := tg.NewRegistry()
	var hit string
	_ = reg.RegisterCallback("donate_", func(tele.Context) error { hit = "prefix"; return nil })
	_ = reg.RegisterCallback("donate_custom", func(tele.Context) error { hit = "custom"; return nil })
	route := CallbackRoute(reg, CallbackOptions{})

	cases := map[string]string{
		"donate_custom": "custom",
		"donate_500":    "prefix",
		"\fdonate_|300": "prefix",
	}
	for data, want := range cases {
		hit = ""
		if err := route.Handler(newStubContext(callbackUpdate(data))); err != nil {
			t.Fatalf("%q: %v", data, err)
		}
		if hit != want {
			t.Fatalf("%q routed to %q, want %q", data, hit, want)
		}
	}
}

func TestCallbackRouteFallsBack(t *testing.T) {
	reg := tg.NewRegistry()
	c := newStubContext(callbackUpdate("nope"))
	if err := CallbackRoute(reg, CallbackOptions{}).Handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if c.responded != 1 {
		t.Fatalf("default fallback must answer the callback, responded=%d", c.responded)
	}

	called := false
	opts := CallbackOptions{NotFound: func(tele.Context) error { called = true; return nil }}
	if err := CallbackRoute(reg, opts).Handler(newStubContext(callbackUpdate("nope"))); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !called {
		t.Fatal("custom NotFound not used")
	}
}

type fakeFSM struct {
	active  map[int64]bool
	handled int
}

func (f *fakeFSM) InProgress(chatID int64) bool { return f.active[chatID] }

func (f *fakeFSM) ManagerHandler(tele.Context) error {
	f.handled++
	return nil
}

func TestTextRoutesOrder(t *testing.T) {
	reg := tg.NewRegistry()
	starts, versions := 0, 0
	_ = reg.RegisterCommand("/start", tg.Command{Handler: func(tele.Context) error { starts++; return nil }, Description: "start"})
	_ = reg.RegisterCommand("/version", tg.Command{Handler: func(tele.Context) error { versions++; return nil }, Description: "v", AdminOnly: true})
	fsm := &fakeFSM{active: map[int64]bool{}}
	unknown := 0
	h := TextRoutes(fsm, reg, TextOptions{UnknownText: func(tele.Context) error { unknown++; return nil }})[0].Handler

	_ = h(newStubContext(textUpdate("start")))
	_ = h(newStubContext(textUpdate("version")))
	_ = h(newStubContext(textUpdate("250")))
	if starts != 1 || versions != 0 || unknown != 2 || fsm.handled != 0 {
		t.Fatalf("idle: starts=%d versions=%d unknown=%d fsm=%d", starts, versions, unknown, fsm.handled)
	}

	fsm.active[chat.ID] = true
	_ = h(newStubContext(textUpdate("start")))
	if fsm.handled != 1 || starts != 1 {
		t.Fatalf("awaiting: fsm=%d starts=%d", fsm.handled, starts)
	}
}

func TestCommandRoutesGuardAdmin(t *testing.T) {
	reg := tg.NewRegistry()
	ran := 0
	_ = reg.RegisterCommand("/version", tg.Command{Handler: func(tele.Context) error { ran++; return nil }, Description: "v", AdminOnly: true})

	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 99})
	if len(routes) != 1 || routes[0].Endpoint != "/version" {
		t.Fatalf("routes = %+v", routes)
	}
	_ = routes[0].Handler(newStubContext(textUpdate("/version")))
	if ran != 0 {
		t.Fatal("non-admin reached an admin command")
	}

	admin := textUpdate("/version")
	admin.Message.Sender = &tele.User{ID: 99}
	_ = routes[0].Handler(newStubContext(admin))
	if ran != 1 {
		t.Fatal("admin was rejected")
	}
}

func TestPaymentRoutesBindsGivenHandlers(t *testing.T) {
	if got := PaymentRoutes(PaymentOptions{}); len(got) != 0 {
		t.Fatalf("routes = %+v", got)
	}
	noop := func(tele.Context) error { return nil }
	got := PaymentRoutes(PaymentOptions{PreCheckout: noop, Paid: noop})
	if len(got) != 2 || got[0].Endpoint != tele.OnCheckout || got[1].Endpoint != tele.OnPayment {
		t.Fatalf("routes = %+v", got)
	}
}
