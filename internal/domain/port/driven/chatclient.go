// Package driven defines the outbound port interfaces implemented by adapters.
package driven

import (
	"context"
	"io"
	"time"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

// TokenProvider performs a client-credential exchange with the upstream
// identity endpoint. Every call is an independent exchange; caching and
// refresh policy live in the caller. Failures wrap ErrAuthFailed.
type TokenProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// ChatClient fetches messages from the upstream chat, newest first.
//
// ListMessages retrieves the latest page and follows continuation links
// backward through older pages only while every message on the current page
// was created on day; it stops as soon as a page's oldest entry precedes
// day's start. The returned slice contains only messages created on day,
// newest first. A rejected credential wraps ErrAuthFailed so the caller can
// refresh and retry; all other failures wrap ErrUpstreamFetch.
type ChatClient interface {
	ListMessages(ctx context.Context, day time.Time) ([]model.Message, error)
}

// ResourceFetcher retrieves a protected upstream resource using the current
// credential. A non-2xx upstream response yields a *StatusError; transport
// failures wrap ErrUpstreamFetch. The returned contentType may be empty.
type ResourceFetcher interface {
	FetchResource(ctx context.Context, url string) (body io.ReadCloser, contentType string, err error)
}
