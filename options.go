package tether

import (
	"log/slog"

	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/ports"
)

// config collects the settings shared by stores and providers.
type config struct {
	name    string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	journal ports.Journal
}

// Option defines a functional option for configuring a Store or a Provider.
// Options given to CreateStore are defaults for every provider of that store;
// options given to NewProvider apply on top of them.
type Option func(*config)

// WithName labels the store. Provider IDs are derived from it (default: "store").
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Hooks registered more than once
// (e.g. on the store and on a provider) are all called, in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithJournal records every dispatch of the provider in j.
func WithJournal(j ports.Journal) Option {
	return func(c *config) {
		c.journal = j
	}
}

func (c config) apply(opts []Option) config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
