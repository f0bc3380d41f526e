package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/donatebot/app/donation"
	"github.com/m3rciful/donatebot/core/telegram/keyboard"
	"github.com/m3rciful/donatebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by Sink calls made before the bot is bound.
var ErrNotBound = errors.New("handlers: sink is not bound to a bot")

// botAPI is the subset of *tele.Bot the sink needs.
type botAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Accept(query *tele.PreCheckoutQuery, errorMessage ...string) error
}

type apiHolder struct{ api botAPI }

// Sink implements donation.Notifier over the Telegram Bot API.
// The bot is created by the runtime, so the sink is bound late via Bind.
type Sink struct {
	api atomic.Pointer[apiHolder]
}

// NewSink returns an unbound sink.
func NewSink() *Sink {
	return &Sink{}
}

// Bind sets the bot used for outbound calls.
func (s *Sink) Bind(api botAPI) {
	s.api.Store(&apiHolder{api: api})
}

func (s *Sink) bot() (botAPI, error) {
	h := s.api.Load()
	if h == nil || h.api == nil {
		return nil, ErrNotBound
	}
	return h.api, nil
}

func htmlOptions(kb donation.Keyboard) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(kb) > 0 {
		opts.ReplyMarkup = markup(kb)
	}
	return opts
}

func markup(kb donation.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Text, Data: b.Data})
		}
		rows = append(rows, r)
	}
	return keyboard.InlineButtonsRows(rows...)
}

func refOf(msg *tele.Message) donation.MessageRef {
	if msg == nil {
		return donation.MessageRef{}
	}
	ref := donation.MessageRef{MessageID: msg.ID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref
}

// SendMessage sends an HTML message with an optional inline keyboard.
func (s *Sink) SendMessage(ctx context.Context, chatID int64, text string, kb donation.Keyboard) (donation.MessageRef, error) {
	api, err := s.bot()
	if err != nil {
		return donation.MessageRef{}, err
	}
	msg, err := api.Send(tele.ChatID(chatID), text, htmlOptions(kb))
	if err != nil {
		return donation.MessageRef{}, fmt.Errorf("sendMessage: %w", err)
	}
	middleware.CountersFrom(ctx).Record(len(kb) > 0)
	ref := refOf(msg)
	if ref.ChatID == 0 {
		ref.ChatID = chatID
	}
	return ref, nil
}

// EditMessage replaces text and keyboard of a sent message. An edit that
// changes nothing is not an error.
func (s *Sink) EditMessage(ctx context.Context, ref donation.MessageRef, text string, kb donation.Keyboard) error {
	api, err := s.bot()
	if err != nil {
		return err
	}
	if _, err := api.Edit(ref, text, htmlOptions(kb)); err != nil {
		if isNotModified(err) {
			return nil
		}
		return fmt.Errorf("editMessageText: %w", err)
	}
	middleware.CountersFrom(ctx).Record(len(kb) > 0)
	return nil
}

// DeleteMessage deletes a sent message.
func (s *Sink) DeleteMessage(_ context.Context, ref donation.MessageRef) error {
	api, err := s.bot()
	if err != nil {
		return err
	}
	if err := api.Delete(ref); err != nil {
		return fmt.Errorf("deleteMessage: %w", err)
	}
	return nil
}

// SendInvoice sends a single-line invoice.
func (s *Sink) SendInvoice(ctx context.Context, chatID int64, inv donation.Invoice) (donation.MessageRef, error) {
	api, err := s.bot()
	if err != nil {
		return donation.MessageRef{}, err
	}
	ti := &tele.Invoice{
		Title:       inv.Title,
		Description: inv.Description,
		Payload:     inv.Payload,
		Token:       inv.ProviderToken,
		Currency:    inv.Currency,
		Start:       inv.StartParam,
		Prices: []tele.Price{{
			Label:  inv.PriceLabel,
			Amount: int(inv.MinorUnits()),
		}},
	}
	msg, err := api.Send(tele.ChatID(chatID), ti)
	if err != nil {
		return donation.MessageRef{}, fmt.Errorf("sendInvoice: %w", err)
	}
	middleware.CountersFrom(ctx).Record(false)
	ref := refOf(msg)
	if ref.ChatID == 0 {
		ref.ChatID = chatID
	}
	return ref, nil
}

// AnswerPreCheckout accepts the query, or rejects it with reason.
func (s *Sink) AnswerPreCheckout(_ context.Context, queryID string, ok bool, reason string) error {
	api, err := s.bot()
	if err != nil {
		return err
	}
	q := &tele.PreCheckoutQuery{ID: queryID}
	if ok {
		err = api.Accept(q)
	} else {
		err = api.Accept(q, reason)
	}
	if err != nil {
		return fmt.Errorf("answerPreCheckoutQuery: %w", err)
	}
	return nil
}

func isNotModified(err error) bool {
	if errors.Is(err, tele.ErrSameMessageContent) {
		return true
	}
	return strings.Contains(err.Error(), "message is not modified")
}
