// Package handlers adapts Telegram updates to the donation controller.
package handlers

import (
	"fmt"
	"html"
	"log/slog"

	"github.com/m3rciful/donatebot/app/donation"
	"github.com/m3rciful/donatebot/core/buildinfo"
	"github.com/m3rciful/donatebot/core/logger"
	"github.com/m3rciful/donatebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/donatebot/core/telegram/helpers"
	"github.com/m3rciful/donatebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Handlers binds telebot handler funcs to a controller.
type Handlers struct {
	ctrl  *donation.Controller
	store state.Store
}

// New returns handlers for ctrl; store is only read for diagnostics.
func New(ctrl *donation.Controller, store state.Store) *Handlers {
	return &Handlers{ctrl: ctrl, store: store}
}

func pressedRef(c tele.Context) *donation.MessageRef {
	cb := c.Callback()
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	return &donation.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.ID}
}

func chatID(c tele.Context) (int64, bool) {
	chat := c.Chat()
	if chat == nil {
		return 0, false
	}
	return chat.ID, true
}

// Start handles /start and its donate_<n> deep link.
func (h *Handlers) Start(c tele.Context) error {
	id, ok := chatID(c)
	if !ok {
		return nil
	}
	param := ""
	if msg := c.Message(); msg != nil {
		param = msg.Payload
	}
	return h.ctrl.Start(tghelpers.BuildContext(c), id, param)
}

// FixedAmount handles donate_<amount> buttons.
func (h *Handlers) FixedAmount(c tele.Context) error {
	id, ok := chatID(c)
	if !ok {
		return c.Respond()
	}
	raw, _ := callbacks.Suffix(c, donation.CallbackDonatePrefix)
	amount, err := h.ctrl.Validate(raw)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: stripTags(h.ctrl.ErrorText(err))})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: h.ctrl.PreparingText(amount)})
	return h.ctrl.SelectAmount(tghelpers.BuildContext(c), id, amount)
}

// CustomAmount handles the donate_custom button.
func (h *Handlers) CustomAmount(c tele.Context) error {
	_ = c.Respond()
	id, ok := chatID(c)
	if !ok {
		return nil
	}
	return h.ctrl.RequestCustomAmount(tghelpers.BuildContext(c), id, pressedRef(c))
}

// Back handles the back_to_menu button.
func (h *Handlers) Back(c tele.Context) error {
	_ = c.Respond()
	id, ok := chatID(c)
	if !ok {
		return nil
	}
	return h.ctrl.Back(tghelpers.BuildContext(c), id, pressedRef(c))
}

// AmountText handles text typed while the chat awaits a custom amount.
func (h *Handlers) AmountText(c tele.Context) error {
	id, ok := chatID(c)
	if !ok {
		return nil
	}
	return h.ctrl.SubmitCustomAmount(tghelpers.BuildContext(c), id, c.Text())
}

// PreCheckout answers pre-checkout queries.
func (h *Handlers) PreCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	if q == nil {
		return nil
	}
	pc := donation.PreCheckout{
		ID:         q.ID,
		Payload:    q.Payload,
		Currency:   q.Currency,
		TotalMinor: int64(q.Total),
	}
	if q.Sender != nil {
		pc.UserID = q.Sender.ID
	}
	return h.ctrl.PreCheckout(tghelpers.BuildContext(c), pc)
}

// Paid handles successful_payment messages.
func (h *Handlers) Paid(c tele.Context) error {
	msg := c.Message()
	id, ok := chatID(c)
	if msg == nil || msg.Payment == nil || !ok {
		return nil
	}
	p := msg.Payment
	payment := donation.Payment{
		ChatID:           id,
		TotalMinor:       int64(p.Total),
		Currency:         p.Currency,
		Payload:          p.Payload,
		TelegramChargeID: p.TelegramChargeID,
		ProviderChargeID: p.ProviderChargeID,
	}
	if msg.Sender != nil {
		payment.UserID = msg.Sender.ID
	}
	ctx := tghelpers.BuildContext(c)
	paid, err := h.ctrl.CompletePayment(ctx, payment)
	logger.Debug(ctx, "tg", "payment.handled",
		slog.String("amount", paid.StringFixed(2)),
		slog.Bool("thanked", err == nil),
	)
	return err
}

// Version reports build metadata, the number of live sessions and sender counters.
func (h *Handlers) Version(c tele.Context) error {
	text := fmt.Sprintf("<b>donatebot</b> %s\nsessions: %d",
		html.EscapeString(buildinfo.String()), h.store.Len())
	if st, ok := tghelpers.SenderStats(); ok {
		text += fmt.Sprintf("\nsender: sent=%d retried=%d failed=%d dropped=%d",
			st.Sent, st.Retried, st.Failed, st.Dropped)
	}
	return tghelpers.SendHTML(c, text, nil)
}

// stripTags drops HTML markup: callback toasts are plain text.
func stripTags(s string) string {
	out := make([]rune, 0, len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			out = append(out, r)
		}
	}
	return string(out)
}
