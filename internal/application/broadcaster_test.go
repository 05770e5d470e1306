package application_test

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalstad/teamsrelay/internal/application"
	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

// mockSubscriber records every snapshot it receives and can be told to fail.
type mockSubscriber struct {
	mu       sync.Mutex
	received []model.Snapshot
	sendErr  error
	closed   bool
}

func (m *mockSubscriber) Send(snapshot model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, snapshot)
	return nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSubscriber) snapshots() []model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Snapshot(nil), m.received...)
}

func snapshotOf(ids ...string) model.Snapshot {
	snap := make(model.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap = append(snap, model.Message{ID: id})
	}
	return snap
}

func TestRegister_SendsCurrentSnapshot(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())
	hub.Publish(snapshotOf("m2", "m1"))

	sub := &mockSubscriber{}
	hub.Register(sub)

	got := sub.snapshots()
	require.Len(t, got, 1)
	assert.Equal(t, hub.Current(), got[0])
	assert.Equal(t, 1, hub.Len())
}

func TestRegister_SendsEmptySnapshotBeforeFirstPublish(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())

	sub := &mockSubscriber{}
	hub.Register(sub)

	got := sub.snapshots()
	require.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestPublish_FansOutInOrder(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	hub.Publish(snapshotOf("m1"))
	hub.Publish(snapshotOf("m2", "m1"))

	got := sub.snapshots()
	require.Len(t, got, 3) // catch-up + two publishes
	assert.Equal(t, "m1", got[1].LeadingID())
	assert.Equal(t, "m2", got[2].LeadingID())
}

func TestPublish_DropsAndClosesFailingSubscriber(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())

	healthy := &mockSubscriber{}
	hub.Register(healthy)

	failing := &mockSubscriber{}
	hub.Register(failing)
	failing.sendErr = errors.New("connection reset")

	require.Equal(t, 2, hub.Len())

	hub.Publish(snapshotOf("m1"))

	assert.Equal(t, 1, hub.Len())
	assert.True(t, failing.closed)

	// Subsequent publishes no longer attempt delivery to the dropped one.
	hub.Publish(snapshotOf("m2", "m1"))
	assert.Len(t, failing.snapshots(), 1) // catch-up only
	assert.Len(t, healthy.snapshots(), 3)
}

func TestUnregister_Idempotent(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())
	sub := &mockSubscriber{}
	hub.Register(sub)

	hub.Unregister(sub)
	hub.Unregister(sub)

	assert.Equal(t, 0, hub.Len())
}

func TestRegister_FailedCatchUpNeverJoins(t *testing.T) {
	hub := application.NewBroadcaster(slog.Default())

	sub := &mockSubscriber{sendErr: errors.New("gone already")}
	hub.Register(sub)

	assert.Equal(t, 0, hub.Len())
	assert.True(t, sub.closed)
}
