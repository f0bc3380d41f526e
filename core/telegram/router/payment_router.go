package router

import (
	tg "github.com/m3rciful/donatebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// PaymentOptions binds handlers for the Telegram Payments updates.
type PaymentOptions struct {
	// PreCheckout must answer the query; Telegram cancels the payment after 10 seconds.
	PreCheckout tele.HandlerFunc
	// Paid handles the successful_payment service message.
	Paid tele.HandlerFunc
}

// PaymentRoutes wires pre-checkout queries and successful payments.
func PaymentRoutes(opts PaymentOptions) []tg.Route {
	var routes []tg.Route
	if opts.PreCheckout != nil {
		routes = append(routes, tg.Route{Endpoint: tele.OnCheckout, Handler: named("pre_checkout", opts.PreCheckout)})
	}
	if opts.Paid != nil {
		routes = append(routes, tg.Route{Endpoint: tele.OnPayment, Handler: named("payment", opts.Paid)})
	}
	return routes
}
