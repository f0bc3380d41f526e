package telegram

import (
	"net"
	"strconv"
	"time"

	coreconfig "github.com/m3rciful/donatebot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates lists the update kinds the bot routes; payments need
// pre_checkout_query, which Telegram does not send unless asked.
var allowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}

// BuildPoller returns the update source for cfg.Telegram.RunMode, which
// Normalize has already validated.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port)),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
			AllowedUpdates: allowedUpdates,
		}
	}
	return &tele.LongPoller{
		Timeout:        longPollTimeout(cfg.Telegram.LongPollTimeoutSeconds),
		AllowedUpdates: allowedUpdates,
	}
}

func longPollTimeout(sec int) time.Duration {
	if sec <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(sec) * time.Second
}
