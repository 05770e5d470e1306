// Package application contains use-case orchestration services.
package application

import (
	"context"
	"sync"

	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// Credentials holds the process-wide bearer token for the upstream source.
// The token is replaced wholesale on refresh, never mutated in place, so
// concurrent readers either see the old value or the new one. Readers that
// lose the race use a stale token and retry after Refresh.
type Credentials struct {
	provider driven.TokenProvider

	mu    sync.RWMutex
	token string
}

// NewCredentials creates a Credentials holder backed by the given provider.
// No token is acquired until the first Get or Refresh call.
func NewCredentials(provider driven.TokenProvider) *Credentials {
	return &Credentials{provider: provider}
}

// Get returns the current token, acquiring one first if none is held yet.
func (c *Credentials) Get(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		return token, nil
	}
	return c.Refresh(ctx)
}

// Refresh performs a fresh exchange and replaces the held token. Concurrent
// callers each perform their own exchange; the last writer wins, which is
// harmless since every freshly issued token is valid.
func (c *Credentials) Refresh(ctx context.Context) (string, error) {
	token, err := c.provider.Acquire(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	return token, nil
}
