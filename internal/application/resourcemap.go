package application

import (
	"sync"

	"github.com/google/uuid"
)

// ResourceMap records which opaque proxy token stands in for which protected
// upstream URL. It grows for the process lifetime: the relay only ever embeds
// a handful of images at a time, so eviction is deliberately left out.
// Writers (the rewriter) and readers (the proxy) run concurrently.
type ResourceMap struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewResourceMap creates an empty ResourceMap.
func NewResourceMap() *ResourceMap {
	return &ResourceMap{urls: make(map[string]string)}
}

// Put stores url under a freshly generated token and returns the token.
func (m *ResourceMap) Put(url string) string {
	token := uuid.NewString()

	m.mu.Lock()
	m.urls[token] = url
	m.mu.Unlock()

	return token
}

// Resolve returns the upstream URL recorded for token.
func (m *ResourceMap) Resolve(token string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	url, ok := m.urls[token]
	return url, ok
}

// Len returns the number of recorded mappings.
func (m *ResourceMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.urls)
}
