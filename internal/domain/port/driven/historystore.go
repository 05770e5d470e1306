package driven

import (
	"context"

	"github.com/mkalstad/teamsrelay/internal/domain/model"
)

// HistoryStore is the append/read boundary to long-term persistence.
// The relay only appends driver events and archived snapshots and lists
// them back; it never mutates or deletes history.
type HistoryStore interface {
	AppendDriverEvent(ctx context.Context, event model.DriverEvent) error
	ListDriverEvents(ctx context.Context) ([]model.DriverEvent, error)

	// ArchiveMessages appends every message of a broadcast snapshot to the
	// audit log.
	ArchiveMessages(ctx context.Context, messages []model.Message) error
	ListArchivedMessages(ctx context.Context) ([]model.Message, error)
}
