package application

import (
	"log/slog"
	"sync"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

// Subscriber is one live viewer connection. Send must be safe to call from
// the broadcaster's goroutine; implementations serialize their own writes.
type Subscriber interface {
	Send(snapshot model.Snapshot) error
	Close() error
}

// Broadcaster owns the current authoritative snapshot and the set of live
// subscribers. Snapshot replacement and fan-out happen under one mutex, so a
// newly registered subscriber always receives exactly the snapshot current
// at registration time: there is no window where it could miss a publish or
// receive one twice.
type Broadcaster struct {
	logger *slog.Logger

	mu      sync.Mutex
	current model.Snapshot
	subs    map[Subscriber]struct{}
}

// NewBroadcaster creates a Broadcaster with an empty snapshot and no
// subscribers.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		subs:   make(map[Subscriber]struct{}),
	}
}

// Register adds a subscriber and immediately sends it the current snapshot,
// even when empty. If the catch-up send fails the subscriber is closed and
// never joins the set.
func (b *Broadcaster) Register(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := sub.Send(b.current); err != nil {
		b.logger.Error("catch-up send failed", "error", err)
		_ = sub.Close()
		return
	}
	b.subs[sub] = struct{}{}
}

// Unregister removes a subscriber. Safe to call for subscribers that were
// already removed by a failed publish.
func (b *Broadcaster) Unregister(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// Publish replaces the current snapshot and fans it out to every subscriber.
// Subscribers whose send fails are closed and dropped; the registry heals
// itself without a separate heartbeat.
func (b *Broadcaster) Publish(snapshot model.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = snapshot
	for sub := range b.subs {
		if err := sub.Send(snapshot); err != nil {
			b.logger.Error("subscriber send failed, dropping", "error", err)
			_ = sub.Close()
			delete(b.subs, sub)
		}
	}
}

// Current returns the snapshot most recently published.
func (b *Broadcaster) Current() model.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
