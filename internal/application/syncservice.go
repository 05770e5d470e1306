package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
	"github.com/mkalstad/teamsrelay/internal/domain/port/driven"
)

// SyncService pulls the upstream chat on a fixed interval, detects whether
// anything changed since the last broadcast, rewrites embedded media, and
// publishes fresh snapshots to the broadcaster.
type SyncService struct {
	chat        driven.ChatClient
	rewriter    *Rewriter
	broadcaster *Broadcaster
	credentials *Credentials
	interval    time.Duration
	logger      *slog.Logger

	refreshCh chan chan error

	// prevLeadingID is the newest message ID of the last published
	// snapshot. Comparing against it is what decides "anything new?".
	prevLeadingID string
}

// NewSyncService creates a SyncService with all required dependencies.
func NewSyncService(
	chat driven.ChatClient,
	rewriter *Rewriter,
	broadcaster *Broadcaster,
	credentials *Credentials,
	interval time.Duration,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		chat:        chat,
		rewriter:    rewriter,
		broadcaster: broadcaster,
		credentials: credentials,
		interval:    interval,
		logger:      logger,
		refreshCh:   make(chan chan error),
	}
}

// Start begins the sync loop. It runs an immediate cycle, then one per
// interval, and also serves manual refresh requests. Cycle errors are logged
// and contained; the ticker keeps running. Start blocks until the context is
// canceled and leaks neither the ticker nor the goroutine.
func (s *SyncService) Start(ctx context.Context) {
	if err := s.syncOnce(ctx); err != nil {
		s.logger.Error("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync service stopped")
			return
		case <-ticker.C:
			if err := s.syncOnce(ctx); err != nil {
				s.logger.Error("sync cycle failed", "error", err)
			}
		case done := <-s.refreshCh:
			done <- s.syncOnce(ctx)
		}
	}
}

// RefreshNow triggers a sync cycle outside the regular interval and blocks
// until it completes or the context is canceled.
func (s *SyncService) RefreshNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// syncOnce performs one fetch-compare-publish cycle. A listing rejected for
// a stale credential triggers exactly one refresh and one retry; the cached
// token would otherwise stay dead for the rest of the process lifetime.
func (s *SyncService) syncOnce(ctx context.Context) error {
	start := time.Now()

	fetched, err := s.fetchMessages(ctx, start)
	if err != nil {
		return err
	}

	snapshot := model.Snapshot(fetched)
	leadingID := snapshot.LeadingID()

	if leadingID == s.prevLeadingID {
		s.logger.Debug("sync cycle unchanged",
			"messages", len(fetched),
			"duration", time.Since(start).Round(time.Millisecond),
		)
		return nil
	}

	rewritten := model.Snapshot(s.rewriter.Rewrite(fetched))
	s.broadcaster.Publish(rewritten)
	s.prevLeadingID = leadingID

	s.logger.Info("snapshot published",
		"messages", len(rewritten),
		"subscribers", s.broadcaster.Len(),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// fetchMessages lists the day's messages, refreshing the credential once
// when the listing is rejected as unauthorized.
func (s *SyncService) fetchMessages(ctx context.Context, day time.Time) ([]model.Message, error) {
	fetched, err := s.chat.ListMessages(ctx, day)
	if err == nil {
		return fetched, nil
	}
	if !errors.Is(err, driven.ErrAuthFailed) {
		return nil, err
	}

	s.logger.Warn("listing rejected, refreshing credential", "error", err)
	if _, refreshErr := s.credentials.Refresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}
	return s.chat.ListMessages(ctx, day)
}
