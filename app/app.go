// Package app wires the donation bot: configuration, session store, controller
// and Telegram routes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/m3rciful/donatebot/app/donation"
	"github.com/m3rciful/donatebot/app/handlers"
	"github.com/m3rciful/donatebot/core/bootstrap"
	coretelegram "github.com/m3rciful/donatebot/core/telegram"
	"github.com/m3rciful/donatebot/core/telegram/router"
	tgsender "github.com/m3rciful/donatebot/core/telegram/sender"
	"github.com/m3rciful/donatebot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// App holds the wired bot components.
type App struct {
	cfg      *Config
	boot     *bootstrap.Result
	machine  *state.Machine
	sink     *handlers.Sink
	handlers *handlers.Handlers
}

// Bootstrap initializes logging and the session store and builds the controller.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config: cfg.CoreConfig(),
		Session: bootstrap.SessionOptions{
			Kind:     cfg.Session.Store,
			Capacity: cfg.Session.Capacity,
			TTL:      time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		},
	})
	if err != nil {
		return nil, err
	}
	a, err := build(cfg, res)
	if err != nil {
		res.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *Config, res *bootstrap.Result) (*App, error) {
	sink := handlers.NewSink()
	ctrl, err := donation.NewController(res.Store, sink, donation.Settings{
		MinAmount:     cfg.Donation.MinAmount,
		MaxAmount:     cfg.Donation.MaxAmount,
		Presets:       cfg.Donation.Presets,
		PerRow:        cfg.Donation.PerRow,
		Currency:      cfg.Payments.Currency,
		ProviderToken: cfg.Payments.ProviderToken,
		Texts:         cfg.Donation.Texts,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	h := handlers.New(ctrl, res.Store)
	machine := state.NewMachine(res.Store)
	machine.RegisterHandler(state.StateAwaitingCustomAmount, h.AmountText)

	return &App{
		cfg:      cfg,
		boot:     res,
		machine:  machine,
		sink:     sink,
		handlers: h,
	}, nil
}

// Close releases the session store.
func (a *App) Close() {
	a.boot.Close()
}

func (a *App) registry() (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	cmds := map[string]coretelegram.Command{
		"/start": {
			Handler:     a.handlers.Start,
			Description: "Поддержать проект",
		},
		"/version": {
			Handler:     a.handlers.Version,
			Description: "Build info",
			AdminOnly:   true,
			Hidden:      true,
		},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return nil, err
		}
	}

	cbs := []struct {
		key string
		h   tele.HandlerFunc
	}{
		{donation.CallbackCustom, a.handlers.CustomAmount},
		{donation.CallbackBack, a.handlers.Back},
		{donation.CallbackDonatePrefix, a.handlers.FixedAmount},
	}
	for _, cb := range cbs {
		if err := reg.RegisterCallback(cb.key, cb.h); err != nil {
			return nil, err
		}
	}
	// Buttons of an older menu layout are acknowledged silently.
	reg.SetCallbackNotFound(func(c tele.Context) error { return c.Respond() })
	return reg, nil
}

// TelegramRunOptions builds the registry, middleware chain and routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg, err := a.registry()
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	mws, err := coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), onLimited,
		coretelegram.Middleware{Name: "session", Use: state.WithSession(a.boot.Store)},
	)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	var routes []coretelegram.Route
	routes = append(routes, router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.machine, reg, router.TextOptions{})...)
	routes = append(routes, router.PaymentRoutes(router.PaymentOptions{
		PreCheckout: a.handlers.PreCheckout,
		Paid:        a.handlers.Paid,
	})...)

	return coretelegram.RunOptions{
		Config:   a.cfg.CoreConfig(),
		Registry: reg,
		DispatcherOptions: tgsender.Options{
			QueueSize: 64,
			Workers:   2,
		},
		Middlewares: mws,
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.sink.Bind(rt.Bot)
			return nil
		},
	}, nil
}

// onLimited stops the button spinner for throttled callbacks.
func onLimited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond()
}
