package demandinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx/dbxtest"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidateinfra"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/shopspring/decimal"
)

const (
	booked = "Booked"
	billed = "Billed"
)

func ledgerRow(client kernel.ClientID, offering, metric string, value int64, at time.Time) demand.LedgerRow {
	return demand.LedgerRow{
		ID:          kernel.NewLedgerRowID(),
		ClientID:    client,
		AccountName: "Acme",
		Owner:       "alex",
		Offering:    offering,
		MetricType:  metric,
		Value:       decimal.NewFromInt(value),
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func setup(t *testing.T) (context.Context, demand.LedgerRepository, kernel.ClientID) {
	t.Helper()
	db := dbxtest.DB(t)
	ctx := dbxtest.Tx(t, db)

	client := candidate.Client{ID: kernel.NewClientID(), CreatedAt: time.Now().UTC()}
	client.Name = "client-" + client.ID.String()
	if err := candidateinfra.NewPostgresClientDirectory(db).Save(ctx, client); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return ctx, NewPostgresLedgerRepository(db), client.ID
}

func TestFindOpenDemandGroupsAndFilters(t *testing.T) {
	ctx, ledger, clientID := setup(t)
	t0 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, row := range []demand.LedgerRow{
		ledgerRow(clientID, "Platform", booked, 3, t0),
		ledgerRow(clientID, "Platform", booked, 2, t0.Add(time.Hour)),
		ledgerRow(clientID, "Platform", billed, 1, t0),
		ledgerRow(clientID, "Data", booked, 1, t0),
		ledgerRow(clientID, "Data", billed, 1, t0),
		ledgerRow(clientID, "QA", booked, 2, t0),
	} {
		if err := ledger.Insert(ctx, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	open, err := ledger.FindOpenDemand(ctx, clientID, booked, billed)
	if err != nil {
		t.Fatalf("find open demand: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open groups, got %+v", open)
	}
	if open[0].Offering != "Platform" || !open[0].Available.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("first group = %+v", open[0])
	}
	if open[1].Offering != "QA" || !open[1].Billed.IsZero() {
		t.Fatalf("second group = %+v", open[1])
	}
}

func TestLatestAndUpdateValue(t *testing.T) {
	ctx, ledger, clientID := setup(t)
	t0 := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	older := ledgerRow(clientID, "Platform", booked, 2, t0)
	newestEmpty := ledgerRow(clientID, "Platform", booked, 0, t0.Add(time.Hour))
	for _, row := range []demand.LedgerRow{older, newestEmpty} {
		if err := ledger.Insert(ctx, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err := ledger.Latest(ctx, clientID, booked, false)
	if err != nil || latest.ID != newestEmpty.ID {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	positive, err := ledger.Latest(ctx, clientID, booked, true)
	if err != nil || positive.ID != older.ID {
		t.Fatalf("latest positive = %+v, %v", positive, err)
	}

	if err := ledger.UpdateValue(ctx, older.ID, decimal.NewFromInt(1), t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("update: %v", err)
	}
	positive, err = ledger.Latest(ctx, clientID, booked, true)
	if err != nil || !positive.Value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("after update = %+v, %v", positive, err)
	}

	if _, err := ledger.Latest(ctx, clientID, billed, false); !errx.IsCode(err, demand.CodeLedgerRowNotFound) {
		t.Fatalf("expected ledger row not found, got %v", err)
	}
	if err := ledger.UpdateValue(ctx, kernel.NewLedgerRowID(), decimal.Zero, t0); !errx.IsCode(err, demand.CodeLedgerRowNotFound) {
		t.Fatalf("expected ledger row not found on update, got %v", err)
	}
}
