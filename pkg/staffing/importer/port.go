package importer

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/kernel"
)

// RawRowStore keeps staged aggregation rows until they are consolidated
type RawRowStore interface {
	// Stage inserts the row; false means an identical row (same content hash) already exists
	Stage(ctx context.Context, row RawRow) (bool, error)
	// Pending returns unconsolidated rows after the cursor in (received_at, id) order
	Pending(ctx context.Context, dataSource string, after PendingCursor, limit int) ([]RawRow, error)
	CountPending(ctx context.Context, dataSource string) (int, error)
	MarkConsolidated(ctx context.Context, id kernel.RawRowID, outcome Outcome, at time.Time) error
	PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error)
}

// PendingCursor is a position in the pending-row order. The zero value
// starts from the oldest row.
type PendingCursor struct {
	ReceivedAt time.Time
	ID         kernel.RawRowID
}

// CursorAfter positions a cursor just past row
func CursorAfter(row RawRow) PendingCursor {
	return PendingCursor{ReceivedAt: row.ReceivedAt, ID: row.ID}
}

// RowSource reads spreadsheet exports from the import file store
type RowSource interface {
	ReadRows(ctx context.Context, path string) ([]map[string]string, error)
	Inbox(ctx context.Context) ([]string, error)
	Archive(ctx context.Context, path string) (string, error)
	Ping(ctx context.Context) error
}

// SyncStatusStore holds the last-run snapshot per data source
type SyncStatusStore interface {
	Save(ctx context.Context, status SyncStatus) error
	Load(ctx context.Context, dataSource string) (*SyncStatus, error)
}
