// Package donation implements the donation conversation: the preset menu, the
// custom amount prompt, invoice issuance and payment completion.
//
// Every chat owns one state.Session. Operations that rewrite a session's message
// references run under a per-chat lock, so the most recent handler for a chat
// owns its menu and invoice references until it returns.
package donation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/donatebot/core/logger"
	"github.com/m3rciful/donatebot/core/telegram/keyboard"
	"github.com/m3rciful/donatebot/core/telegram/state"
	"github.com/shopspring/decimal"
)

const (
	component   = "service.donations"
	lockStripes = 64
)

// Preset is a menu button for a fixed amount.
type Preset struct {
	Amount int64  `yaml:"amount"`
	Label  string `yaml:"label"`
}

// Settings configures a Controller.
type Settings struct {
	MinAmount     int64
	MaxAmount     int64
	Presets       []Preset
	PerRow        int
	Currency      string
	ProviderToken string
	Texts         Texts
}

// Controller drives per-chat donation sessions.
type Controller struct {
	store    state.Store
	notifier Notifier
	settings Settings
	text     renderer

	locks [lockStripes]sync.Mutex
}

// NewController validates settings and binds the controller to its collaborators.
func NewController(store state.Store, notifier Notifier, settings Settings) (*Controller, error) {
	if store == nil {
		return nil, errors.New("donation: nil session store")
	}
	if notifier == nil {
		return nil, errors.New("donation: nil notifier")
	}
	if settings.MinAmount <= 0 || settings.MaxAmount < settings.MinAmount {
		return nil, fmt.Errorf("donation: invalid bounds [%d, %d]", settings.MinAmount, settings.MaxAmount)
	}
	if strings.TrimSpace(settings.Currency) == "" {
		return nil, errors.New("donation: currency is required")
	}
	if settings.PerRow <= 0 {
		settings.PerRow = 2
	}
	settings.Texts = settings.Texts.WithDefaults()
	return &Controller{
		store:    store,
		notifier: notifier,
		settings: settings,
		text:     renderer{texts: settings.Texts, min: settings.MinAmount, max: settings.MaxAmount},
	}, nil
}

func (c *Controller) lock(chatID int64) func() {
	m := &c.locks[uint64(chatID)%lockStripes]
	m.Lock()
	return m.Unlock
}

// Validate parses a user-supplied amount against the configured bounds.
func (c *Controller) Validate(raw string) (int64, error) {
	return ParseAmount(raw, c.settings.MinAmount, c.settings.MaxAmount)
}

// ErrorText returns the user-visible text for a validation error.
func (c *Controller) ErrorText(err error) string {
	return c.text.errorText(err)
}

// PreparingText is the callback toast shown while an invoice is being issued.
func (c *Controller) PreparingText(amount int64) string {
	return c.text.render(c.settings.Texts.Preparing, amount)
}

// Start resets the chat's conversation and shows the menu. A "donate_<n>"
// deep-link parameter additionally issues an invoice for n.
func (c *Controller) Start(ctx context.Context, chatID int64, param string) error {
	unlock := c.lock(chatID)
	defer unlock()

	c.store.Upsert(chatID, func(s *state.Session) { s.State = state.StateIdle })
	ref, err := c.notifier.SendMessage(ctx, chatID, c.settings.Texts.Welcome, c.menuKeyboard())
	if err != nil {
		return fmt.Errorf("send menu: %w", err)
	}
	c.store.Upsert(chatID, func(s *state.Session) {
		s.State = state.StateMenuShown
		s.Menu = &ref
	})

	amount, ok := ParseStartParam(param)
	if !ok {
		return nil
	}
	if amount < c.settings.MinAmount || amount > c.settings.MaxAmount {
		logger.Debug(ctx, component, "deeplink.ignored",
			slog.Int64("amount", amount),
			slog.String("reason", "out_of_range"),
		)
		return nil
	}
	return c.issue(ctx, chatID, amount)
}

// SelectAmount issues an invoice for a preset amount. A chat that was typing a
// custom amount keeps its prompt state.
func (c *Controller) SelectAmount(ctx context.Context, chatID int64, amount int64) error {
	if amount < c.settings.MinAmount {
		return ErrBelowMinimum
	}
	if amount > c.settings.MaxAmount {
		return ErrAboveMaximum
	}
	unlock := c.lock(chatID)
	defer unlock()

	c.store.Upsert(chatID, func(s *state.Session) {
		if s.State != state.StateAwaitingCustomAmount {
			s.State = state.StateMenuShown
		}
	})
	return c.issue(ctx, chatID, amount)
}

// RequestCustomAmount retires the outstanding invoice and turns the pressed
// message into the amount prompt. With no pressed message the prompt is sent anew.
func (c *Controller) RequestCustomAmount(ctx context.Context, chatID int64, pressed *MessageRef) error {
	unlock := c.lock(chatID)
	defer unlock()

	c.retireInvoice(ctx, chatID)
	ref, err := c.show(ctx, chatID, pressed, c.text.render(c.settings.Texts.EnterAmount, 0), c.backKeyboard())
	if err != nil {
		return fmt.Errorf("show amount prompt: %w", err)
	}
	c.store.Upsert(chatID, func(s *state.Session) {
		s.State = state.StateAwaitingCustomAmount
		s.Menu = &ref
	})
	return nil
}

// Back clears the conversation, retires the outstanding invoice and restores
// the menu in the pressed message.
func (c *Controller) Back(ctx context.Context, chatID int64, pressed *MessageRef) error {
	unlock := c.lock(chatID)
	defer unlock()

	c.store.Upsert(chatID, func(s *state.Session) { s.State = state.StateIdle })
	c.retireInvoice(ctx, chatID)
	ref, err := c.show(ctx, chatID, pressed, c.settings.Texts.Welcome, c.menuKeyboard())
	if err != nil {
		return fmt.Errorf("restore menu: %w", err)
	}
	c.store.Upsert(chatID, func(s *state.Session) {
		s.State = state.StateMenuShown
		s.Menu = &ref
	})
	return nil
}

// SubmitCustomAmount handles text typed at the amount prompt. Invalid input is
// answered with the matching error and a back button; the prompt state is kept.
func (c *Controller) SubmitCustomAmount(ctx context.Context, chatID int64, text string) error {
	unlock := c.lock(chatID)
	defer unlock()

	if c.store.Get(chatID).Current() != state.StateAwaitingCustomAmount {
		logger.Debug(ctx, component, "amount.skip", slog.String("reason", "not_awaiting"))
		return nil
	}

	amount, err := c.Validate(text)
	if err != nil {
		logger.Debug(ctx, component, "amount.rejected", slog.String("reason", rejectReason(err)))
		if _, sendErr := c.notifier.SendMessage(ctx, chatID, c.text.errorText(err), c.backKeyboard()); sendErr != nil {
			return fmt.Errorf("send amount error: %w", sendErr)
		}
		return nil
	}

	c.store.Upsert(chatID, func(s *state.Session) { s.State = state.StateMenuShown })
	return c.issue(ctx, chatID, amount)
}

// PreCheckout accepts every pre-check. The answer goes out before anything
// else: Telegram drops the payment if it is not answered within 10 seconds.
func (c *Controller) PreCheckout(ctx context.Context, q PreCheckout) error {
	if err := c.notifier.AnswerPreCheckout(ctx, q.ID, true, ""); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("payload", q.Payload),
		slog.String("currency", q.Currency),
		slog.Int64("amount_minor", q.TotalMinor),
	}
	if _, ok := DecodePayload(q.Payload); !ok {
		logger.Warn(ctx, component, "precheckout.payload_unknown", attrs...)
		return nil
	}
	logger.Info(ctx, component, "precheckout.accepted", attrs...)
	return nil
}

// CompletePayment retires the menu, drops the settled invoice and sends the
// thank-you message with a fresh menu. It returns the paid amount in whole units.
func (c *Controller) CompletePayment(ctx context.Context, p Payment) (decimal.Decimal, error) {
	unlock := c.lock(p.ChatID)
	defer unlock()

	sess := c.store.Get(p.ChatID)
	c.tryRelease(ctx, sess.Menu)
	c.store.Upsert(p.ChatID, func(s *state.Session) {
		s.Menu = nil
		s.Invoice = nil
		s.State = state.StateIdle
	})

	paid := FromMinor(p.TotalMinor)
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("amount", paid.StringFixed(2)),
		slog.Int64("amount_minor", p.TotalMinor),
		slog.String("currency", p.Currency),
		slog.String("payload", p.Payload),
		slog.String("invoice_id", p.TelegramChargeID),
	}
	if expected, ok := DecodePayload(p.Payload); !ok || !decimal.NewFromInt(expected).Equal(paid) {
		logger.Warn(ctx, component, "payment.payload_mismatch", attrs...)
	}
	logger.Info(ctx, component, "payment.completed", attrs...)

	ref, err := c.notifier.SendMessage(ctx, p.ChatID, c.text.thankYou(), c.menuKeyboard())
	if err != nil {
		return paid, fmt.Errorf("send thank-you: %w", err)
	}
	c.store.Upsert(p.ChatID, func(s *state.Session) {
		s.State = state.StateMenuShown
		s.Menu = &ref
	})
	return paid, nil
}

// issue retires the tracked invoice and sends a new one. Callers hold the chat lock.
func (c *Controller) issue(ctx context.Context, chatID int64, amount int64) error {
	c.retireInvoice(ctx, chatID)

	inv := Invoice{
		Title:         c.settings.Texts.InvoiceTitle,
		Description:   c.settings.Texts.InvoiceDescription,
		Payload:       EncodePayload(amount),
		ProviderToken: c.settings.ProviderToken,
		Currency:      c.settings.Currency,
		PriceLabel:    c.text.render(c.settings.Texts.PriceLabel, amount),
		StartParam:    StartParam(amount),
		Amount:        amount,
	}
	ref, err := c.notifier.SendInvoice(ctx, chatID, inv)
	if err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	c.store.Upsert(chatID, func(s *state.Session) { s.Invoice = &ref })
	logger.Info(ctx, component, "invoice.issued",
		slog.String("status", "ok"),
		slog.Int64("amount", amount),
		slog.Int64("amount_minor", inv.MinorUnits()),
		slog.String("payload", inv.Payload),
		slog.Int("invoice_id", ref.MessageID),
	)
	return nil
}

func (c *Controller) retireInvoice(ctx context.Context, chatID int64) {
	sess := c.store.Get(chatID)
	if sess.Invoice == nil {
		return
	}
	c.tryRelease(ctx, sess.Invoice)
	c.store.Upsert(chatID, func(s *state.Session) { s.Invoice = nil })
}

// tryRelease deletes a tracked message and reports whether it succeeded.
// Failures are expected: the user may have deleted the message already.
func (c *Controller) tryRelease(ctx context.Context, ref *MessageRef) bool {
	if ref == nil {
		return false
	}
	if err := c.notifier.DeleteMessage(ctx, *ref); err != nil {
		logger.Debug(ctx, component, "release.failed",
			slog.Int("message_id", ref.MessageID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return true
}

// show edits pressed when present and sends a new message otherwise.
func (c *Controller) show(ctx context.Context, chatID int64, pressed *MessageRef, text string, kb Keyboard) (MessageRef, error) {
	if pressed == nil {
		return c.notifier.SendMessage(ctx, chatID, text, kb)
	}
	if err := c.notifier.EditMessage(ctx, *pressed, text, kb); err != nil {
		return MessageRef{}, err
	}
	return *pressed, nil
}

func (c *Controller) menuKeyboard() Keyboard {
	presets := make([]Button, 0, len(c.settings.Presets))
	for _, p := range c.settings.Presets {
		presets = append(presets, Button{Text: p.Label, Data: CallbackDonatePrefix + strconv.FormatInt(p.Amount, 10)})
	}
	kb := Keyboard(keyboard.Chunk(presets, c.settings.PerRow))
	return append(kb, []Button{{Text: c.settings.Texts.CustomButton, Data: CallbackCustom}})
}

func (c *Controller) backKeyboard() Keyboard {
	return Keyboard{{{Text: c.settings.Texts.BackButton, Data: CallbackBack}}}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrAboveMaximum):
		return "above_maximum"
	default:
		return "not_a_number"
	}
}
