package demand

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/shopspring/decimal"
)

// LedgerRepository reads and shifts the sales ledger
type LedgerRepository interface {
	// FindOpenDemand groups by (client, offering, owner) and keeps groups
	// where booked exceeds billed, largest gap first
	FindOpenDemand(ctx context.Context, clientID kernel.ClientID, booked, billed string) ([]OpenDemand, error)
	// Latest returns the newest row of a metric for the client and locks it.
	// positiveOnly skips rows whose value is zero or less.
	Latest(ctx context.Context, clientID kernel.ClientID, metric string, positiveOnly bool) (*LedgerRow, error)
	UpdateValue(ctx context.Context, id kernel.LedgerRowID, value decimal.Decimal, at time.Time) error
	Insert(ctx context.Context, row LedgerRow) error
}
