package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/donatebot/app/donation"
	"github.com/m3rciful/donatebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

type apiCall struct {
	op      string
	chatID  int64
	msgID   int
	what    interface{}
	opts    *tele.SendOptions
	reason  []string
	queryID string
}

type fakeAPI struct {
	mu      sync.Mutex
	nextID  int
	calls   []apiCall
	editErr error
	delErr  error
}

func chatOf(to tele.Recipient) int64 {
	id, _ := strconv.ParseInt(to.Recipient(), 10, 64)
	return id
}

func sendOpts(opts []interface{}) *tele.SendOptions {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so
		}
	}
	return nil
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	chat := chatOf(to)
	op := "send"
	if _, ok := what.(*tele.Invoice); ok {
		op = "invoice"
	}
	f.calls = append(f.calls, apiCall{op: op, chatID: chat, msgID: f.nextID, what: what, opts: sendOpts(opts)})
	return &tele.Message{ID: f.nextID, Chat: &tele.Chat{ID: chat}}, nil
}

func (f *fakeAPI) Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, chat := msg.MessageSig()
	mid, _ := strconv.Atoi(id)
	f.calls = append(f.calls, apiCall{op: "edit", chatID: chat, msgID: mid, what: what, opts: sendOpts(opts)})
	if f.editErr != nil {
		return nil, f.editErr
	}
	return &tele.Message{ID: mid, Chat: &tele.Chat{ID: chat}}, nil
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, chat := msg.MessageSig()
	mid, _ := strconv.Atoi(id)
	f.calls = append(f.calls, apiCall{op: "delete", chatID: chat, msgID: mid})
	return f.delErr
}

func (f *fakeAPI) Accept(q *tele.PreCheckoutQuery, errorMessage ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{op: "accept", queryID: q.ID, reason: errorMessage})
	return nil
}

func (f *fakeAPI) last(op string) (apiCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].op == op {
			return f.calls[i], true
		}
	}
	return apiCall{}, false
}

type fakeContext struct {
	tele.Context
	upd       tele.Update
	store     map[string]any
	responses []*tele.CallbackResponse
	sent      []string
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{upd: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update                      { return f.upd }
func (f *fakeContext) Get(k string) any                         { return f.store[k] }
func (f *fakeContext) Set(k string, v any)                      { f.store[k] = v }
func (f *fakeContext) Callback() *tele.Callback                 { return f.upd.Callback }
func (f *fakeContext) PreCheckoutQuery() *tele.PreCheckoutQuery { return f.upd.PreCheckoutQuery }

func (f *fakeContext) Message() *tele.Message {
	if f.upd.Callback != nil {
		return f.upd.Callback.Message
	}
	return f.upd.Message
}

func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.upd.Callback != nil:
		return f.upd.Callback.Sender
	case f.upd.PreCheckoutQuery != nil:
		return f.upd.PreCheckoutQuery.Sender
	case f.upd.Message != nil:
		return f.upd.Message.Sender
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.upd.Message != nil {
		return f.upd.Message.Text
	}
	return ""
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		f.responses = append(f.responses, &tele.CallbackResponse{})
		return nil
	}
	f.responses = append(f.responses, resp[0])
	return nil
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

const testChat int64 = 555

var (
	testUser = &tele.User{ID: 777}
	chatObj  = &tele.Chat{ID: testChat, Type: tele.ChatPrivate}
)

func setup(t *testing.T) (*Handlers, *fakeAPI, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	api := &fakeAPI{}
	sink := NewSink()
	sink.Bind(api)
	ctrl, err := donation.NewController(store, sink, donation.Settings{
		MinAmount:     donation.DefaultMinAmount,
		MaxAmount:     donation.DefaultMaxAmount,
		Presets:       []donation.Preset{{Amount: 150, Label: "☕ 150 ₽"}, {Amount: 300, Label: "🚀 300 ₽"}},
		PerRow:        2,
		Currency:      "RUB",
		ProviderToken: "provider",
	})
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	return New(ctrl, store), api, store
}

func startCtx(payload string) *fakeContext {
	return newFakeContext(tele.Update{ID: 1, Message: &tele.Message{
		ID: 1, Sender: testUser, Chat: chatObj, Text: "/start " + payload, Payload: payload,
	}})
}

func callbackCtx(data string, menuID int) *fakeContext {
	return newFakeContext(tele.Update{ID: 2, Callback: &tele.Callback{
		ID: "cb", Sender: testUser, Data: data,
		Message: &tele.Message{ID: menuID, Chat: chatObj},
	}})
}

func TestStartSendsHTMLMenu(t *testing.T) {
	h, api, store := setup(t)
	if err := h.Start(startCtx("")); err != nil {
		t.Fatalf("start: %v", err)
	}
	sent, ok := api.last("send")
	if !ok {
		t.Fatal("menu not sent")
	}
	if sent.opts == nil || sent.opts.ParseMode != tele.ModeHTML || sent.opts.ReplyMarkup == nil {
		t.Fatalf("opts = %+v", sent.opts)
	}
	kb := sent.opts.ReplyMarkup.InlineKeyboard
	if len(kb) != 2 || kb[0][0].Data != "donate_150" || kb[1][0].Data != donation.CallbackCustom {
		t.Fatalf("keyboard = %+v", kb)
	}
	if sess := store.Get(testChat); sess.Menu == nil || sess.Menu.MessageID != sent.msgID {
		t.Fatalf("session = %+v", sess)
	}
}

func TestFixedAmountSendsInvoiceAndToast(t *testing.T) {
	h, api, store := setup(t)
	_ = h.Start(startCtx(""))
	menu, _ := api.last("send")

	c := callbackCtx("donate_150", menu.msgID)
	if err := h.FixedAmount(c); err != nil {
		t.Fatalf("fixed: %v", err)
	}
	if len(c.responses) != 1 || c.responses[0].Text != "Формирую счёт на 150 ₽..." {
		t.Fatalf("responses = %+v", c.responses)
	}
	call, ok := api.last("invoice")
	if !ok {
		t.Fatal("invoice not sent")
	}
	inv := call.what.(*tele.Invoice)
	if inv.Payload != "donation_150" || inv.Currency != "RUB" || inv.Token != "provider" || inv.Start != "donate_150" {
		t.Fatalf("invoice = %+v", inv)
	}
	if len(inv.Prices) != 1 || inv.Prices[0].Amount != 15000 {
		t.Fatalf("prices = %+v", inv.Prices)
	}
	if sess := store.Get(testChat); sess.Invoice == nil || sess.Invoice.MessageID != call.msgID {
		t.Fatalf("session = %+v", sess)
	}
}

func TestFixedAmountOutOfRangeAnswersError(t *testing.T) {
	h, api, _ := setup(t)
	c := callbackCtx("donate_5", 1)
	if err := h.FixedAmount(c); err != nil {
		t.Fatalf("fixed: %v", err)
	}
	if len(c.responses) != 1 || !strings.Contains(c.responses[0].Text, "Слишком маленькая сумма") {
		t.Fatalf("responses = %+v", c.responses)
	}
	if strings.Contains(c.responses[0].Text, "<b>") {
		t.Fatalf("toast must be plain text: %q", c.responses[0].Text)
	}
	if _, ok := api.last("invoice"); ok {
		t.Fatal("no invoice expected")
	}
}

func TestCustomAmountFlow(t *testing.T) {
	h, api, store := setup(t)
	_ = h.Start(startCtx(""))
	menu, _ := api.last("send")

	if err := h.CustomAmount(callbackCtx(donation.CallbackCustom, menu.msgID)); err != nil {
		t.Fatalf("custom: %v", err)
	}
	edit, ok := api.last("edit")
	if !ok || edit.msgID != menu.msgID {
		t.Fatalf("edit = %+v", edit)
	}
	if store.Get(testChat).Current() != state.StateAwaitingCustomAmount {
		t.Fatalf("state = %q", store.Get(testChat).Current())
	}

	text := newFakeContext(tele.Update{ID: 3, Message: &tele.Message{ID: 9, Sender: testUser, Chat: chatObj, Text: "250"}})
	if err := h.AmountText(text); err != nil {
		t.Fatalf("amount: %v", err)
	}
	call, _ := api.last("invoice")
	if inv := call.what.(*tele.Invoice); inv.Prices[0].Amount != 25000 {
		t.Fatalf("prices = %+v", inv.Prices)
	}
	if store.Get(testChat).Current() != state.StateInvoiceIssued {
		t.Fatalf("state = %q", store.Get(testChat).Current())
	}
}

func TestBackEditNotModifiedIsIgnored(t *testing.T) {
	h, api, _ := setup(t)
	_ = h.Start(startCtx(""))
	menu, _ := api.last("send")
	api.editErr = errors.New("telegram: Bad Request: message is not modified (400)")

	if err := h.Back(callbackCtx(donation.CallbackBack, menu.msgID)); err != nil {
		t.Fatalf("back: %v", err)
	}
}

func TestPreCheckoutAccepts(t *testing.T) {
	h, api, _ := setup(t)
	c := newFakeContext(tele.Update{ID: 4, PreCheckoutQuery: &tele.PreCheckoutQuery{
		ID: "q1", Sender: testUser, Payload: "donation_150", Currency: "RUB", Total: 15000,
	}})
	if err := h.PreCheckout(c); err != nil {
		t.Fatalf("pre-checkout: %v", err)
	}
	call, ok := api.last("accept")
	if !ok || call.queryID != "q1" || len(call.reason) != 0 {
		t.Fatalf("accept = %+v", call)
	}
}

func TestPaidSendsThanksAndTracksMenu(t *testing.T) {
	h, api, store := setup(t)
	_ = h.Start(startCtx(""))
	menu, _ := api.last("send")
	_ = h.FixedAmount(callbackCtx("donate_150", menu.msgID))

	c := newFakeContext(tele.Update{ID: 5, Message: &tele.Message{
		ID: 50, Sender: testUser, Chat: chatObj,
		Payment: &tele.Payment{Total: 15000, Currency: "RUB", Payload: "donation_150", TelegramChargeID: "tg-1"},
	}})
	if err := h.Paid(c); err != nil {
		t.Fatalf("paid: %v", err)
	}
	del, _ := api.last("delete")
	if del.msgID != menu.msgID {
		t.Fatalf("menu not deleted: %+v", del)
	}
	thanks, _ := api.last("send")
	if !strings.Contains(thanks.what.(string), "Огромное спасибо") {
		t.Fatalf("thanks = %v", thanks.what)
	}
	sess := store.Get(testChat)
	if sess.Invoice != nil || sess.Menu == nil || sess.Menu.MessageID != thanks.msgID {
		t.Fatalf("session = %+v", sess)
	}
}

func TestVersionReportsSessions(t *testing.T) {
	h, _, _ := setup(t)
	_ = h.Start(startCtx(""))
	c := newFakeContext(tele.Update{ID: 6, Message: &tele.Message{ID: 60, Sender: testUser, Chat: chatObj, Text: "/version"}})
	if err := h.Version(c); err != nil {
		t.Fatalf("version: %v", err)
	}
	if len(c.sent) != 1 || !strings.Contains(c.sent[0], "sessions: 1") {
		t.Fatalf("sent = %v", c.sent)
	}
}

func TestUnboundSink(t *testing.T) {
	s := NewSink()
	if _, err := s.SendMessage(context.Background(), 1, "x", nil); !errors.Is(err, ErrNotBound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStripTags(t *testing.T) {
	if got := stripTags("❌ <b>Ошибка</b> 1 < 2"); got != "❌ Ошибка 1 " {
		t.Fatalf("stripped = %q", got)
	}
}
