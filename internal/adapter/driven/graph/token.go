package graph

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// graphScope requests an app-only token covering every Graph permission the
// application registration was granted.
const graphScope = "https://graph.microsoft.com/.default"

// Compile-time interface satisfaction check.
var _ driven.TokenProvider = (*TokenSource)(nil)

// TokenSource implements the TokenProvider port with an OAuth2
// client-credential exchange against the tenant's token endpoint. Every
// Acquire performs an independent exchange; callers own caching policy.
type TokenSource struct {
	conf clientcredentials.Config
}

// NewTokenSource creates a TokenSource for the given tenant and client
// identity. loginBaseURL is the identity host, without a trailing slash.
func NewTokenSource(loginBaseURL, tenantID, clientID, clientSecret string) *TokenSource {
	return &TokenSource{
		conf: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", loginBaseURL, tenantID),
			Scopes:       []string{graphScope},
		},
	}
}

// Acquire exchanges the client credentials for a bearer token.
func (s *TokenSource) Acquire(ctx context.Context) (string, error) {
	tok, err := s.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", driven.ErrAuthFailed, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access token", driven.ErrAuthFailed)
	}
	return tok.AccessToken, nil
}
