package application_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalstad/teamsrelay/internal/adapter/driven/graph"
	"github.com/mkalstad/teamsrelay/internal/application"
	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// mockChatClient serves queued ListMessages results; the last entry repeats
// once the queue is exhausted.
type mockChatClient struct {
	mu    sync.Mutex
	queue []fetchResult
	calls int
}

type fetchResult struct {
	messages []model.Message
	err      error
}

func (m *mockChatClient) ListMessages(_ context.Context, _ time.Time) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.calls
	if idx >= len(m.queue) {
		idx = len(m.queue) - 1
	}
	m.calls++
	return m.queue[idx].messages, m.queue[idx].err
}

func (m *mockChatClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func textMessage(id string, createdAt time.Time) model.Message {
	return model.Message{
		ID:              id,
		Sender:          "Dispatch",
		Body:            "message " + id,
		BodyContentType: "text",
		CreatedAt:       createdAt,
	}
}

// startSync runs a SyncService with a long interval so only the initial
// cycle and explicit RefreshNow calls drive it. The initial cycle is
// guaranteed to finish before RefreshNow can be served, because Start only
// listens on the refresh channel after it completes.
func startSync(t *testing.T, chat driven.ChatClient, hub *application.Broadcaster) *application.SyncService {
	t.Helper()
	return startSyncWithCredentials(t, chat, hub, application.NewCredentials(&mockTokenProvider{}))
}

func startSyncWithCredentials(t *testing.T, chat driven.ChatClient, hub *application.Broadcaster, creds *application.Credentials) *application.SyncService {
	t.Helper()

	rw := application.NewRewriter(application.NewResourceMap(), "http://board.test")
	svc := application.NewSyncService(chat, rw, hub, creds, time.Hour, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return svc
}

func TestSync_BroadcastsOnceForUnchangedFetch(t *testing.T) {
	now := time.Now()
	msgs := []model.Message{
		textMessage("m3", now),
		textMessage("m2", now.Add(-time.Minute)),
		textMessage("m1", now.Add(-2*time.Minute)),
	}
	chat := &mockChatClient{queue: []fetchResult{{messages: msgs}}}

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	svc := startSync(t, chat, hub)

	// Two more cycles with identical upstream content.
	require.NoError(t, svc.RefreshNow(context.Background()))
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.Len(t, got, 2, "catch-up plus exactly one broadcast")
	assert.Len(t, got[1], 3)
	assert.Equal(t, "m3", got[1].LeadingID())
}

func TestSync_BroadcastsAgainWhenLeadingChanges(t *testing.T) {
	now := time.Now()
	chat := &mockChatClient{queue: []fetchResult{
		{messages: []model.Message{textMessage("m1", now.Add(-time.Minute))}},
		{messages: []model.Message{textMessage("m2", now), textMessage("m1", now.Add(-time.Minute))}},
	}}

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	svc := startSync(t, chat, hub)
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[1].LeadingID())
	assert.Equal(t, "m2", got[2].LeadingID())
}

func TestSync_CycleErrorIsContained(t *testing.T) {
	now := time.Now()
	chat := &mockChatClient{queue: []fetchResult{
		{err: errors.New("upstream down")},
		{messages: []model.Message{textMessage("m1", now)}},
	}}

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	// Initial cycle fails; the service keeps running.
	svc := startSync(t, chat, hub)
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[1].LeadingID())
}

func TestSync_RefreshNowSurfacesCycleError(t *testing.T) {
	chat := &mockChatClient{queue: []fetchResult{
		{messages: nil},
		{err: errors.New("upstream down")},
	}}

	hub := application.NewBroadcaster(slog.Default())
	svc := startSync(t, chat, hub)

	err := svc.RefreshNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestSync_PublishesEmptySnapshotOnDayRollover(t *testing.T) {
	now := time.Now()
	chat := &mockChatClient{queue: []fetchResult{
		{messages: []model.Message{textMessage("m1", now)}},
		{messages: nil},
	}}

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	svc := startSync(t, chat, hub)
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.Len(t, got, 3)
	assert.Empty(t, got[2], "a fetch gone empty clears the board")
}

func TestSync_NewSubscriberSeesSnapshotCurrentAtRegistration(t *testing.T) {
	now := time.Now()
	chat := &mockChatClient{queue: []fetchResult{
		{messages: []model.Message{textMessage("m1", now)}},
	}}

	hub := application.NewBroadcaster(slog.Default())
	svc := startSync(t, chat, hub)
	require.NoError(t, svc.RefreshNow(context.Background()))

	sub := &mockSubscriber{}
	hub.Register(sub)

	got := sub.snapshots()
	require.Len(t, got, 1, "late joiner catches up without waiting for a broadcast")
	assert.Equal(t, "m1", got[0].LeadingID())
}

func TestSync_RefreshesCredentialWhenListingRejected(t *testing.T) {
	now := time.Now()
	chat := &mockChatClient{queue: []fetchResult{
		{err: fmt.Errorf("list messages: %w: status 401", driven.ErrAuthFailed)},
		{messages: []model.Message{textMessage("m1", now)}},
	}}
	provider := &mockTokenProvider{}

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	svc := startSyncWithCredentials(t, chat, hub, application.NewCredentials(provider))
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.Len(t, got, 2, "the retried initial cycle still broadcasts")
	assert.Equal(t, "m1", got[1].LeadingID())
	assert.Equal(t, 1, provider.acquireCount(), "one refresh for the rejected listing")
	assert.Equal(t, 3, chat.callCount(), "rejected fetch, retry, then the manual cycle")
}

func TestSync_RefreshesAtMostOncePerCycle(t *testing.T) {
	authErr := fmt.Errorf("list messages: %w: status 401", driven.ErrAuthFailed)
	chat := &mockChatClient{queue: []fetchResult{{err: authErr}}}
	provider := &mockTokenProvider{}

	hub := application.NewBroadcaster(slog.Default())
	svc := startSyncWithCredentials(t, chat, hub, application.NewCredentials(provider))

	err := svc.RefreshNow(context.Background())
	require.ErrorIs(t, err, driven.ErrAuthFailed)
	assert.Equal(t, 2, provider.acquireCount(), "one refresh per cycle, no retry storm")
	assert.Equal(t, 4, chat.callCount())
}

// A chat whose upstream rejects stale bearers must come back on its own: the
// cycle after expiry refreshes the credential and keeps broadcasting.
func TestSync_RecoversAfterUpstreamTokenExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"value":[{"id":"m1","createdDateTime":%q,"from":{"user":{"displayName":"Alice"}},"body":{"contentType":"text","content":"hello"}}]}`,
			time.Now().UTC().Format(time.RFC3339))
	}))
	defer srv.Close()

	provider := &mockTokenProvider{}
	creds := application.NewCredentials(provider)
	chat := graph.NewClientWithHTTPClient(srv.Client(), srv.URL, "19:test", creds.Get, slog.Default())

	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	// The first-issued token is already expired from the upstream's point
	// of view; the initial cycle must refresh and still publish.
	svc := startSyncWithCredentials(t, chat, hub, creds)
	require.NoError(t, svc.RefreshNow(context.Background()))

	got := sub.snapshots()
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "m1", got[1].LeadingID())
	assert.Equal(t, 2, provider.acquireCount(), "initial exchange plus one refresh after the rejection")
}
