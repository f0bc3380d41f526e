package donation

import (
	"errors"
	"strconv"
	"strings"
)

// Texts holds every user-visible string. Messages are sent with HTML parse mode.
// Placeholders: {min}, {max} (grouped thousands) and {amount} (plain digits).
type Texts struct {
	Welcome         string `yaml:"welcome"`
	EnterAmount     string `yaml:"enter_amount"`
	NotANumber      string `yaml:"not_a_number"`
	BelowMinimum    string `yaml:"below_minimum"`
	AboveMaximum    string `yaml:"above_maximum"`
	ThankYou        string `yaml:"thank_you"`
	AnotherDonation string `yaml:"another_donation"`
	Preparing       string `yaml:"preparing"`

	CustomButton string `yaml:"custom_button"`
	BackButton   string `yaml:"back_button"`

	InvoiceTitle       string `yaml:"invoice_title"`
	InvoiceDescription string `yaml:"invoice_description"`
	PriceLabel         string `yaml:"price_label"`
}

// DefaultTexts returns the stock Russian copy.
func DefaultTexts() Texts {
	return Texts{
		Welcome: "👋 <b>Привет!</b>\n\n" +
			"Я официальный бот <b>Голосового Калькулятора</b>.\n\n" +
			"Если приложение тебе помогло, ты можешь поддержать разработку любой суммой.\n\n" +
			"Выбери вариант ниже: 👇",
		EnterAmount: "✏️ Пожалуйста, введи сумму пожертвования числом (в рублях).\n\n" +
			"<i>Минимум {min} ₽</i>",
		NotANumber:   "❌ <b>Некорректная сумма!</b>\n\nПожалуйста, введи целое число не менее {min}.",
		BelowMinimum: "❌ <b>Слишком маленькая сумма!</b>\n\nМинимум {min} ₽",
		AboveMaximum: "❌ <b>Слишком большая сумма!</b>\n\nМаксимум {max} ₽",
		ThankYou: "🎉 <b>Огромное спасибо!</b>\n\n" +
			"Твоя поддержка очень важна.\n" +
			"Благодаря тебе приложение станет еще лучше! ❤️",
		AnotherDonation: "Хочешь поддержать ещё? 👇",
		Preparing:       "Формирую счёт на {amount} ₽...",

		CustomButton: "✏️ Ввести свою сумму",
		BackButton:   "🔙 Назад",

		InvoiceTitle:       "Пожертвование",
		InvoiceDescription: "Пожертвование на развитие проекта «Голосовой Калькулятор»",
		PriceLabel:         "Пожертвование {amount} ₽",
	}
}

// WithDefaults fills empty fields from DefaultTexts.
func (t Texts) WithDefaults() Texts {
	d := DefaultTexts()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&t.Welcome, d.Welcome)
	fill(&t.EnterAmount, d.EnterAmount)
	fill(&t.NotANumber, d.NotANumber)
	fill(&t.BelowMinimum, d.BelowMinimum)
	fill(&t.AboveMaximum, d.AboveMaximum)
	fill(&t.ThankYou, d.ThankYou)
	fill(&t.AnotherDonation, d.AnotherDonation)
	fill(&t.Preparing, d.Preparing)
	fill(&t.CustomButton, d.CustomButton)
	fill(&t.BackButton, d.BackButton)
	fill(&t.InvoiceTitle, d.InvoiceTitle)
	fill(&t.InvoiceDescription, d.InvoiceDescription)
	fill(&t.PriceLabel, d.PriceLabel)
	return t
}

type renderer struct {
	texts    Texts
	min, max int64
}

func (r renderer) render(tmpl string, amount int64) string {
	return strings.NewReplacer(
		"{min}", FormatAmount(r.min),
		"{max}", FormatAmount(r.max),
		"{amount}", strconv.FormatInt(amount, 10),
	).Replace(tmpl)
}

// errorText maps a validation error to its re-prompt text.
func (r renderer) errorText(err error) string {
	switch {
	case errors.Is(err, ErrBelowMinimum):
		return r.render(r.texts.BelowMinimum, 0)
	case errors.Is(err, ErrAboveMaximum):
		return r.render(r.texts.AboveMaximum, 0)
	default:
		return r.render(r.texts.NotANumber, 0)
	}
}

func (r renderer) thankYou() string {
	return r.texts.ThankYou + "\n\n" + r.texts.AnotherDonation
}
