// Package graph implements the upstream chat ports against the Microsoft
// Graph REST API.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ChatClient      = (*Client)(nil)
	_ driven.ResourceFetcher = (*Client)(nil)
)

// BearerFunc supplies the current bearer token for a request. It is a
// function so the client always sees the freshest credential, including one
// refreshed mid-flight by the proxy.
type BearerFunc func(ctx context.Context) (string, error)

// Client implements the ChatClient and ResourceFetcher ports over the Graph
// REST API. Responses flow through an in-memory httpcache transport so
// conditional requests are honored where Graph supplies validators.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
	bearer     BearerFunc
	logger     *slog.Logger
}

// NewClient creates a Graph client for one chat. baseURL is the versioned
// API root without a trailing slash.
func NewClient(baseURL, chatID string, bearer BearerFunc, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   30 * time.Second,
		},
		baseURL: baseURL,
		chatID:  chatID,
		bearer:  bearer,
		logger:  logger,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, chatID string, bearer BearerFunc, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		chatID:     chatID,
		bearer:     bearer,
		logger:     logger,
	}
}

// chatMessagesPage is one page of the Graph chat-messages listing.
type chatMessagesPage struct {
	Value    []chatMessage `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

// chatMessage is the subset of the Graph message shape the relay consumes.
type chatMessage struct {
	ID              string      `json:"id"`
	CreatedDateTime time.Time   `json:"createdDateTime"`
	From            *sender     `json:"from"`
	Body            messageBody `json:"body"`
}

type sender struct {
	User *struct {
		DisplayName string `json:"displayName"`
	} `json:"user"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// ListMessages fetches the chat's latest messages, newest first, filtered to
// the calendar day of day. Graph paginates by creation time, newest page
// first; the continuation link is followed only while the current page's
// oldest entry has not yet crossed back before day's start.
func (c *Client) ListMessages(ctx context.Context, day time.Time) ([]model.Message, error) {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())

	pageURL := fmt.Sprintf("%s/chats/%s/messages", c.baseURL, url.PathEscape(c.chatID))
	messages := []model.Message{}

	for page := 0; pageURL != ""; page++ {
		resp, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("graph page fetched",
			"chat", c.chatID,
			"page", page,
			"count", len(resp.Value),
		)

		for _, raw := range resp.Value {
			msg := mapMessage(raw)
			if msg.CreatedOn(day) {
				messages = append(messages, msg)
			}
		}

		if len(resp.Value) == 0 || resp.NextLink == "" {
			break
		}
		oldest := mapMessage(resp.Value[len(resp.Value)-1])
		if oldest.CreatedAt.Before(dayStart) {
			// The page already reaches into yesterday; older pages
			// cannot contribute anything from day.
			break
		}
		pageURL = resp.NextLink
	}

	return messages, nil
}

// fetchPage retrieves and decodes one listing page.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (*chatMessagesPage, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// A rejected bearer is the caller's cue to refresh the credential,
		// so it must stay distinguishable from ordinary fetch failures.
		return nil, fmt.Errorf("list messages: %w: status %d", driven.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list messages: %w: status %d", driven.ErrUpstreamFetch, resp.StatusCode)
	}

	var page chatMessagesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("list messages: decode: %w: %v", driven.ErrUpstreamFetch, err)
	}
	return &page, nil
}

// FetchResource streams a protected Graph URL with the current credential.
// A non-2xx response yields a *driven.StatusError so the proxy can relay the
// upstream status; transport failures wrap driven.ErrUpstreamFetch, which is
// the proxy's cue to refresh the credential and retry.
func (c *Client) FetchResource(ctx context.Context, resourceURL string) (io.ReadCloser, string, error) {
	resp, err := c.get(ctx, resourceURL)
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch resource: %w", &driven.StatusError{Code: resp.StatusCode})
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// get issues an authenticated GET. Transport failures wrap ErrUpstreamFetch;
// status handling is left to the caller.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driven.ErrUpstreamFetch, err)
	}
	return resp, nil
}

// mapMessage converts a Graph wire message to the domain model.
func mapMessage(raw chatMessage) model.Message {
	senderName := ""
	if raw.From != nil && raw.From.User != nil {
		senderName = raw.From.User.DisplayName
	}

	return model.Message{
		ID:              raw.ID,
		Sender:          senderName,
		Body:            raw.Body.Content,
		BodyContentType: raw.Body.ContentType,
		CreatedAt:       raw.CreatedDateTime,
	}
}
