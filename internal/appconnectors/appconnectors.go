// Package appconnectors implements the per-(endpointId, serviceClass)
// client+cache factory from spec.md §4.3: given a Connector id and a logical
// service class (e.g. "refocus", "influx"), it returns a memoized
// (*remote.Client, *cache.Cache[model.Sample]) pair, constructing it once and
// reusing it for the lifetime of the process. The tuple space is bounded by
// the (small, operator-controlled) connector registry, so memoization is a
// plain map guarded by a mutex rather than an eviction cache: §4.3 requires
// "the same tuple always returns the same pair for the lifetime of the
// process," which an LRU can violate by evicting a still-live entry.
package appconnectors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MihaiBojin/pyplyn/internal/cache"
	"github.com/MihaiBojin/pyplyn/internal/connector"
	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/remote"
)

type entry struct {
	client *remote.Client
	cache  *cache.Cache[model.Sample]
}

type key struct {
	endpointID   string
	serviceClass string
}

// AuthenticatorFor builds an Authenticator for a given service class; most
// service classes share one scheme (BasicAuthenticator), but AppConnectors
// stays generic so e.g. a token-header-only sink can be wired in without
// touching this package.
type AuthenticatorFor func(serviceClass string) remote.Authenticator

// AppConnectors is the memoized factory from spec.md §4.3. Safe for
// concurrent use; each (endpointId, serviceClass) tuple is constructed at
// most once for the lifetime of the process.
type AppConnectors struct {
	registry      *connector.Registry
	authenticator AuthenticatorFor
	rateLimit     float64
	logger        *slog.Logger
	sweepInterval time.Duration
	sweepCtx      context.Context

	mu      sync.Mutex
	entries map[key]*entry
}

// Config controls AppConnectors construction.
type Config struct {
	// SweepContext bounds the lifetime of every per-entry cache sweeper
	// goroutine. It must outlive any single Configuration's own context:
	// a cache entry is shared by every Configuration touching its
	// (endpointId, serviceClass), so its sweep must not stop just because
	// the Configuration that happened to create the entry was removed.
	// Defaults to context.Background() when nil.
	SweepContext  context.Context
	RateLimit     float64
	SweepInterval time.Duration
	Logger        *slog.Logger
}

// New constructs an AppConnectors bound to registry, using authenticatorFor
// to build the Authenticator for each serviceClass encountered.
func New(registry *connector.Registry, authenticatorFor AuthenticatorFor, cfg Config) (*AppConnectors, error) {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SweepContext == nil {
		cfg.SweepContext = context.Background()
	}

	return &AppConnectors{
		registry:      registry,
		authenticator: authenticatorFor,
		rateLimit:     cfg.RateLimit,
		logger:        cfg.Logger,
		sweepInterval: cfg.SweepInterval,
		sweepCtx:      cfg.SweepContext,
		entries:       make(map[key]*entry),
	}, nil
}

// Get returns the (Client, Cache) pair for (endpointID, serviceClass),
// constructing and memoizing it on first use. The per-tuple construction is
// itself serialized under a lock so two concurrent first-callers for the
// same tuple cannot build two distinct clients (the same tuple must always
// return the same pair). Returns model.ErrConfig if no Connector is
// registered under endpointID.
func (a *AppConnectors) Get(ctx context.Context, endpointID, serviceClass string) (*remote.Client, *cache.Cache[model.Sample], error) {
	k := key{endpointID: endpointID, serviceClass: serviceClass}

	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.entries[k]; ok {
		return e.client, e.cache, nil
	}

	conn, ok := a.registry.Get(endpointID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no connector registered for endpoint %q", model.ErrConfig, endpointID)
	}

	client, err := remote.New(conn, remote.Config{
		Authenticator:      a.authenticator(serviceClass),
		Logger:             a.logger,
		RateLimitPerSecond: a.rateLimit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("constructing client for endpoint %q/%q: %w", endpointID, serviceClass, err)
	}

	c := cache.New[model.Sample](nil)
	go c.RunSweeper(a.sweepCtx, a.sweepInterval)

	a.entries[k] = &entry{client: client, cache: c}
	return client, c, nil
}
