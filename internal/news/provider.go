// Package news supplies headline records for the simulated feed. Providers
// are tried in a fixed order; the templated generator at the end of the chain
// cannot fail, so the news feature is never silent.
package news

import (
	"context"
	"log/slog"

	"marketsim/internal/domain"
)

// Provider produces structured headline records for a symbol set.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbols []string, count int) ([]domain.NewsItem, error)
}

// Chain tries providers in order and returns the first success. Failures are
// logged and skipped. Construct it with a Template last and Fetch never fails.
type Chain struct {
	providers []Provider
	log       *slog.Logger
}

// NewChain builds a chain over the given providers.
func NewChain(log *slog.Logger, providers ...Provider) *Chain {
	if log == nil {
		log = slog.Default()
	}
	return &Chain{providers: providers, log: log}
}

// Fetch walks the chain. The error from the last provider is returned only
// if every provider failed.
func (c *Chain) Fetch(ctx context.Context, symbols []string, count int) ([]domain.NewsItem, error) {
	var lastErr error
	for _, p := range c.providers {
		items, err := p.Fetch(ctx, symbols, count)
		if err == nil {
			return items, nil
		}
		lastErr = &domain.ProviderError{Provider: p.Name(), Err: err}
		c.log.Warn("news provider failed, trying next",
			slog.String("provider", p.Name()), slog.Any("error", err))
	}
	return nil, lastErr
}

// Name implements Provider so chains can nest.
func (c *Chain) Name() string { return "chain" }
