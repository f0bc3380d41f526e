package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/donatebot/core/config"
	"github.com/m3rciful/donatebot/core/logger"
	"github.com/m3rciful/donatebot/core/telegram/state"
)

const (
	// StoreCache selects the otter-backed session store with idle eviction.
	StoreCache = "cache"
	// StoreMemory selects the unbounded map store.
	StoreMemory = "memory"
)

// SessionOptions selects and sizes the session store.
type SessionOptions struct {
	Kind     string
	Capacity int
	TTL      time.Duration
}

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config  *coreconfig.Config
	Session SessionOptions

	LoggerInit func(*coreconfig.Config) error
	OpenStore  func(SessionOptions) (state.Store, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store state.Store
}

// Close releases the session store.
func (r *Result) Close() {
	if r != nil && r.Store != nil {
		r.Store.Close()
	}
}

// Run initializes the logger and opens the session store.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	open := opts.OpenStore
	if open == nil {
		open = OpenStore
	}
	store, err := open(opts.Session)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: session store initialization failed: %w", err)
	}

	logger.Info(context.Background(), "app", "session.store",
		slog.String("status", "ok"),
		slog.String("kind", storeKind(opts.Session.Kind)),
		slog.Int("capacity", opts.Session.Capacity),
		slog.Duration("ttl", opts.Session.TTL),
	)
	return &Result{Store: store}, nil
}

// OpenStore builds the session store selected by opts.Kind; empty means cache.
func OpenStore(opts SessionOptions) (state.Store, error) {
	switch storeKind(opts.Kind) {
	case StoreMemory:
		return state.NewMemoryStore(), nil
	case StoreCache:
		return state.NewCacheStore(state.CacheOptions{Capacity: opts.Capacity, TTL: opts.TTL})
	default:
		return nil, fmt.Errorf("unknown session store %q; allowed: cache, memory", opts.Kind)
	}
}

func storeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		return StoreCache
	}
	return k
}
