package app

import (
	"fmt"
	"strings"

	"github.com/m3rciful/donatebot/app/donation"
	"github.com/m3rciful/donatebot/core/bootstrap"
	coreconfig "github.com/m3rciful/donatebot/core/config"
)

// PaymentsConfig holds Telegram Payments provider settings.
type PaymentsConfig struct {
	ProviderToken string `yaml:"provider_token" envconfig:"PAYMENT_PROVIDER_TOKEN"`
	Currency      string `yaml:"currency" envconfig:"PAYMENT_CURRENCY"`
}

// DonationConfig describes amounts, the menu layout and message texts.
type DonationConfig struct {
	MinAmount int64             `yaml:"min_amount" envconfig:"DONATION_MIN_AMOUNT"`
	MaxAmount int64             `yaml:"max_amount" envconfig:"DONATION_MAX_AMOUNT"`
	Presets   []donation.Preset `yaml:"presets" ignored:"true"`
	PerRow    int               `yaml:"per_row"`
	Texts     donation.Texts    `yaml:"texts" ignored:"true"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Store      string `yaml:"store" envconfig:"SESSION_STORE"`
	Capacity   int    `yaml:"capacity"`
	TTLMinutes int    `yaml:"ttl_minutes" envconfig:"SESSION_TTL_MINUTES"`
}

// Config is the donatebot configuration: the core sections plus app sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Payments PaymentsConfig `yaml:"payments"`
	Donation DonationConfig `yaml:"donation"`
	Session  SessionConfig  `yaml:"session"`
}

const (
	defaultCurrency        = "RUB"
	defaultPerRow          = 2
	defaultSessionCapacity = 10_000
	defaultSessionTTL      = 24 * 60
)

// DefaultPresets mirrors the stock menu.
func DefaultPresets() []donation.Preset {
	return []donation.Preset{
		{Amount: 150, Label: "☕ 150 ₽"},
		{Amount: 300, Label: "🚀 300 ₽"},
		{Amount: 500, Label: "💎 500 ₽"},
		{Amount: 1000, Label: "👑 1000 ₽"},
	}
}

// LoadConfig reads path, applies the environment overlay and normalizes the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Load(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Payments.ProviderToken) == "" {
		return fmt.Errorf("payments.provider_token is required")
	}
	cfg.Payments.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payments.Currency))
	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = defaultCurrency
	}
	if len(cfg.Payments.Currency) != 3 {
		return fmt.Errorf("payments.currency must be an ISO 4217 code, got %q", cfg.Payments.Currency)
	}

	d := &cfg.Donation
	if d.MinAmount == 0 {
		d.MinAmount = donation.DefaultMinAmount
	}
	if d.MaxAmount == 0 {
		d.MaxAmount = donation.DefaultMaxAmount
	}
	if d.MinAmount < 0 || d.MaxAmount < d.MinAmount {
		return fmt.Errorf("donation: invalid amount bounds [%d, %d]", d.MinAmount, d.MaxAmount)
	}
	if len(d.Presets) == 0 {
		d.Presets = DefaultPresets()
	}
	for i, p := range d.Presets {
		if p.Amount < d.MinAmount || p.Amount > d.MaxAmount {
			return fmt.Errorf("donation.presets[%d]: amount %d outside [%d, %d]", i, p.Amount, d.MinAmount, d.MaxAmount)
		}
		if strings.TrimSpace(p.Label) == "" {
			d.Presets[i].Label = fmt.Sprintf("%s ₽", donation.FormatAmount(p.Amount))
		}
	}
	if d.PerRow <= 0 {
		d.PerRow = defaultPerRow
	}
	d.Texts = d.Texts.WithDefaults()

	s := &cfg.Session
	s.Store = strings.ToLower(strings.TrimSpace(s.Store))
	if s.Store == "" {
		s.Store = bootstrap.StoreCache
	}
	if s.Store != bootstrap.StoreCache && s.Store != bootstrap.StoreMemory {
		return fmt.Errorf("invalid session.store %q; allowed: cache, memory", s.Store)
	}
	if s.Capacity <= 0 {
		s.Capacity = defaultSessionCapacity
	}
	if s.TTLMinutes <= 0 {
		s.TTLMinutes = defaultSessionTTL
	}
	return nil
}
