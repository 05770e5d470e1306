package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// defaultContentType is assumed when upstream omits the header; embedded
// chat media is effectively always an image.
const defaultContentType = "image/png"

// ProxyService resolves previously issued resource tokens and streams the
// protected upstream media to callers, re-authenticating once when the
// upstream connection fails.
type ProxyService struct {
	resources   *ResourceMap
	fetcher     driven.ResourceFetcher
	credentials *Credentials
	logger      *slog.Logger
}

// NewProxyService creates a ProxyService with all required dependencies.
func NewProxyService(
	resources *ResourceMap,
	fetcher driven.ResourceFetcher,
	credentials *Credentials,
	logger *slog.Logger,
) *ProxyService {
	return &ProxyService{
		resources:   resources,
		fetcher:     fetcher,
		credentials: credentials,
		logger:      logger,
	}
}

// Open resolves token and streams the resource it stands for. Unknown tokens
// return driven.ErrResourceNotFound without touching upstream. A transport
// failure triggers exactly one credential refresh and one retry; an upstream
// HTTP error status propagates as *driven.StatusError without retrying.
// The caller owns the returned body and must close it.
func (p *ProxyService) Open(ctx context.Context, token string) (io.ReadCloser, string, error) {
	url, ok := p.resources.Resolve(token)
	if !ok {
		return nil, "", fmt.Errorf("token %q: %w", token, driven.ErrResourceNotFound)
	}

	body, contentType, err := p.fetcher.FetchResource(ctx, url)
	if err != nil {
		var statusErr *driven.StatusError
		if errors.As(err, &statusErr) {
			return nil, "", err
		}

		// Transport-level failure: the credential has likely expired.
		// Refresh it once and retry once.
		p.logger.Warn("resource fetch failed, refreshing credential", "error", err)
		if _, refreshErr := p.credentials.Refresh(ctx); refreshErr != nil {
			return nil, "", refreshErr
		}

		body, contentType, err = p.fetcher.FetchResource(ctx, url)
		if err != nil {
			return nil, "", err
		}
	}

	if contentType == "" {
		contentType = defaultContentType
	}
	return body, contentType, nil
}
