package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Bot API access and the update source.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminID may run admin-only commands; zero disables them.
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates timeout; 0 means 10s.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// HTTPRetries is how many times a Bot API call is redialed when the
	// connection cannot be established. Zero disables redialing.
	HTTPRetries int `yaml:"http_retries" envconfig:"TELEGRAM_HTTP_RETRIES"`
}

// WebhookConfig is used when RunMode is webhook.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig selects level, format and sinks of the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma-separated key order for kv lines.
	KeysOrder string `yaml:"keys_order"`
	// DebugSample is "n/d": log n of every d high-volume debug events.
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile is debug, dev or prod; debug and dev default to kv lines.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// Run modes.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by RateLimitConfig.ExcludeUpdates.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

// RateLimitConfig enforces a minimum interval between updates of one user.
// Pre-checkout queries and payment messages are never limited.
type RateLimitConfig struct {
	// IntervalMS of zero disables the limiter.
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config is the configuration of the reusable core. Apps embed it inline.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CoreConfig lets apps embedding Config satisfy cmd.ConfigCarrier.
func (c *Config) CoreConfig() *Config {
	return c
}

// Load decodes the YAML file at path into cfg, then applies the environment
// overlay. Unknown YAML keys are rejected. cfg is usually a struct embedding
// Config; Normalize is left to the caller.
func Load(path string, cfg any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process env: %w", err)
	}
	return nil
}

// MaxLongPollTimeoutSeconds keeps getUpdates below the Bot API client timeout.
const MaxLongPollTimeoutSeconds = 25

// Normalize validates cfg and fills defaults. All problems are reported at once.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	return errors.Join(
		normalizeTelegram(cfg),
		normalizeRateLimit(&cfg.RateLimit),
	)
}

func normalizeTelegram(cfg *Config) error {
	var errs []error
	tg := &cfg.Telegram
	if strings.TrimSpace(tg.Token) == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	if tg.HTTPRetries < 0 {
		errs = append(errs, errors.New("telegram.http_retries must be >= 0"))
	}

	switch mode := strings.ToLower(strings.TrimSpace(tg.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		tg.RunMode = RunModeLongpoll
		if tg.LongPollTimeoutSeconds < 0 || tg.LongPollTimeoutSeconds > MaxLongPollTimeoutSeconds {
			errs = append(errs, fmt.Errorf("telegram.longpoll_timeout_seconds must be within [0, %d]", MaxLongPollTimeoutSeconds))
		}
	case RunModeWebhook:
		tg.RunMode = RunModeWebhook
		errs = append(errs, validateWebhook(cfg.Webhook))
	default:
		errs = append(errs, fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", tg.RunMode))
	}
	return errors.Join(errs...)
}

func validateWebhook(wh WebhookConfig) error {
	var errs []error
	if u, err := url.Parse(strings.TrimSpace(wh.URL)); err != nil || u.Scheme != "https" || u.Host == "" {
		errs = append(errs, fmt.Errorf("webhook.url must be an https URL in webhook mode, got %q", wh.URL))
	}
	if strings.TrimSpace(wh.Listen) == "" {
		errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
	}
	if wh.Port <= 0 || wh.Port > 65535 {
		errs = append(errs, errors.New("webhook.port must be within [1, 65535] in webhook mode"))
	}
	return errors.Join(errs...)
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	kinds := rl.ExcludeUpdates[:0]
	for _, v := range rl.ExcludeUpdates {
		switch kind := strings.ToLower(strings.TrimSpace(v)); kind {
		case "":
		case UpdateCallback, UpdateMessage:
			kinds = append(kinds, kind)
		default:
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
	}
	rl.ExcludeUpdates = kinds
	return nil
}
