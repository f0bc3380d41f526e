package donation

import (
	"context"

	"github.com/m3rciful/donatebot/core/telegram/state"
)

// MessageRef points at a message the bot sent.
type MessageRef = state.MessageRef

// Button is an inline keyboard button carrying raw callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Invoice is a payment request for a whole amount.
type Invoice struct {
	Title         string
	Description   string
	Payload       string
	ProviderToken string
	Currency      string
	PriceLabel    string
	StartParam    string
	// Amount is in whole currency units; MinorUnits() is what gets charged.
	Amount int64
}

// MinorUnits returns the charged total in minor currency units.
func (i Invoice) MinorUnits() int64 {
	return MinorUnits(i.Amount)
}

// Notifier is the outbound side of the messaging platform.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string, kb Keyboard) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	SendInvoice(ctx context.Context, chatID int64, inv Invoice) (MessageRef, error)
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool, reason string) error
}

// PreCheckout is the payment pre-check Telegram sends before charging.
type PreCheckout struct {
	ID         string
	UserID     int64
	Payload    string
	Currency   string
	TotalMinor int64
}

// Payment is a completed payment notification.
type Payment struct {
	ChatID           int64
	UserID           int64
	TotalMinor       int64
	Currency         string
	Payload          string
	TelegramChargeID string
	ProviderChargeID string
}
