package assignmentinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx/dbxtest"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidateinfra"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var now = time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)

func seedClient(t *testing.T, ctx context.Context, db *sqlx.DB) kernel.ClientID {
	t.Helper()
	c := candidate.Client{ID: kernel.NewClientID(), CreatedAt: now}
	c.Name = "client-" + c.ID.String()
	if err := candidateinfra.NewPostgresClientDirectory(db).Save(ctx, c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c.ID
}

func seedTalent(t *testing.T, ctx context.Context, talents assignment.TalentRepository, name string) kernel.TalentID {
	t.Helper()
	talent := assignment.TalentSupply{
		ID:                     kernel.NewTalentID(),
		Name:                   name,
		Type:                   "FTE",
		EmploymentStatus:       "Active",
		AvailabilityPercentage: assignment.Hundred,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := talents.Create(ctx, talent); err != nil {
		t.Fatalf("seed talent: %v", err)
	}
	return talent.ID
}

func newAssignment(client kernel.ClientID, talent kernel.TalentID, pct int64, status string) assignment.Assignment {
	end := assignment.EndDateFor(now, 12)
	return assignment.Assignment{
		ID:             kernel.NewAssignmentID(),
		ClientID:       client,
		TalentID:       talent,
		Percentage:     decimal.NewFromInt(pct),
		DurationMonths: 12,
		StartDate:      now,
		EndDate:        &end,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestRecomputeSumsActiveAssignments(t *testing.T) {
	db := dbxtest.DB(t)
	ctx := dbxtest.Tx(t, db)

	assignments := NewPostgresAssignmentRepository(db)
	talents := NewPostgresTalentRepository(db)

	talentID := seedTalent(t, ctx, talents, "Jane Roe")
	for _, a := range []assignment.Assignment{
		newAssignment(seedClient(t, ctx, db), talentID, 60, "Active"),
		newAssignment(seedClient(t, ctx, db), talentID, 50, "Active"),
		newAssignment(seedClient(t, ctx, db), talentID, 40, "Completed"),
	} {
		if err := assignments.Create(ctx, a); err != nil {
			t.Fatalf("create assignment: %v", err)
		}
	}

	if err := talents.Lock(ctx, talentID); err != nil {
		t.Fatalf("lock: %v", err)
	}
	got, err := talents.Recompute(ctx, talentID, "Active")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !got.TotalAssignmentPercentage.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("total = %s", got.TotalAssignmentPercentage)
	}
	if !got.AvailabilityPercentage.IsZero() {
		t.Fatalf("availability = %s", got.AvailabilityPercentage)
	}

	listed, err := assignments.ListByTalent(ctx, talentID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("listed %d assignments", len(listed))
	}
}

func TestTotalsExposeDriftAndRecomputeAllFixesIt(t *testing.T) {
	db := dbxtest.DB(t)
	ctx := dbxtest.Tx(t, db)

	assignments := NewPostgresAssignmentRepository(db)
	talents := NewPostgresTalentRepository(db)

	talentID := seedTalent(t, ctx, talents, "Drifted")
	if err := assignments.Create(ctx, newAssignment(seedClient(t, ctx, db), talentID, 30, "Active")); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	find := func() assignment.TalentTotals {
		t.Helper()
		totals, err := talents.Totals(ctx, "Active")
		if err != nil {
			t.Fatalf("totals: %v", err)
		}
		for _, tt := range totals {
			if tt.TalentID == talentID {
				return tt
			}
		}
		t.Fatalf("talent %s missing from totals", talentID)
		return assignment.TalentTotals{}
	}

	before := find()
	if !before.Cached.IsZero() || !before.Actual.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("before = %+v", before)
	}

	if _, err := talents.RecomputeAll(ctx, "Active"); err != nil {
		t.Fatalf("recompute all: %v", err)
	}
	after := find()
	if !after.Cached.Equal(after.Actual) {
		t.Fatalf("after = %+v", after)
	}

	stored, err := talents.FindByID(ctx, talentID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.AvailabilityPercentage.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("availability = %s", stored.AvailabilityPercentage)
	}
}

func TestIntegrityLogAppendAndRecent(t *testing.T) {
	db := dbxtest.DB(t)
	ctx := dbxtest.Tx(t, db)

	log := NewPostgresIntegrityLog(db)
	entry := assignment.IntegrityLogEntry{
		CheckType:   assignment.CheckAssignmentMismatch,
		TableName:   "talent_supply",
		RecordID:    "t-integrity",
		Issue:       "cached 10 != actual 20",
		CachedValue: decimal.NewNullDecimal(decimal.NewFromInt(10)),
		ActualValue: decimal.NewNullDecimal(decimal.NewFromInt(20)),
		AutoFixed:   true,
		LoggedAt:    time.Now().UTC(),
	}
	if err := log.Append(ctx, []assignment.IntegrityLogEntry{entry}); err != nil {
		t.Fatalf("append: %v", err)
	}

	recent, err := log.Recent(ctx, 1000)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	found := false
	for _, e := range recent {
		if e.RecordID == "t-integrity" {
			found = true
			if !e.AutoFixed || !e.ActualValue.Valid || !e.ActualValue.Decimal.Equal(decimal.NewFromInt(20)) {
				t.Fatalf("unexpected entry %+v", e)
			}
		}
	}
	if !found {
		t.Fatalf("appended entry not returned")
	}
}

// Runs last in its transaction: the unique violation aborts it.
func TestDuplicateClientTalentIsAlreadyExists(t *testing.T) {
	db := dbxtest.DB(t)
	ctx := dbxtest.Tx(t, db)

	assignments := NewPostgresAssignmentRepository(db)
	talents := NewPostgresTalentRepository(db)

	clientID := seedClient(t, ctx, db)
	talentID := seedTalent(t, ctx, talents, "Dup")
	if err := assignments.Create(ctx, newAssignment(clientID, talentID, 100, "Active")); err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := assignments.FindByClientTalent(ctx, clientID, talentID)
	if err != nil || found.TalentID != talentID {
		t.Fatalf("find by client/talent: %+v %v", found, err)
	}

	err = assignments.Create(ctx, newAssignment(clientID, talentID, 50, "Active"))
	if !errx.IsCode(err, assignment.CodeAssignmentAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}
