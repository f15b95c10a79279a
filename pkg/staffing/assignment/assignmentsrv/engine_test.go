package assignmentsrv

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/shopspring/decimal"
)

type memAssignments struct {
	items map[kernel.AssignmentID]assignment.Assignment
}

func (m *memAssignments) FindByID(_ context.Context, id kernel.AssignmentID) (*assignment.Assignment, error) {
	a, ok := m.items[id]
	if !ok {
		return nil, assignment.ErrAssignmentNotFound()
	}
	return &a, nil
}

func (m *memAssignments) FindByClientTalent(_ context.Context, clientID kernel.ClientID, talentID kernel.TalentID) (*assignment.Assignment, error) {
	for _, a := range m.items {
		if a.ClientID == clientID && a.TalentID == talentID {
			return &a, nil
		}
	}
	return nil, assignment.ErrAssignmentNotFound()
}

func (m *memAssignments) ListByTalent(_ context.Context, talentID kernel.TalentID) ([]assignment.Assignment, error) {
	var out []assignment.Assignment
	for _, a := range m.items {
		if a.TalentID == talentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignments) Create(_ context.Context, a assignment.Assignment) error {
	m.items[a.ID] = a
	return nil
}

func (m *memAssignments) Update(_ context.Context, a assignment.Assignment) error {
	if _, ok := m.items[a.ID]; !ok {
		return assignment.ErrAssignmentNotFound()
	}
	m.items[a.ID] = a
	return nil
}

func (m *memAssignments) Delete(_ context.Context, id kernel.AssignmentID) error {
	if _, ok := m.items[id]; !ok {
		return assignment.ErrAssignmentNotFound()
	}
	delete(m.items, id)
	return nil
}

type memTalents struct {
	items  map[kernel.TalentID]*assignment.TalentSupply
	ledger *memAssignments
	locks  []kernel.TalentID
}

func (m *memTalents) FindByID(_ context.Context, id kernel.TalentID) (*assignment.TalentSupply, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, assignment.ErrTalentNotFound()
	}
	cp := *t
	return &cp, nil
}

func (m *memTalents) FindBySourceCandidate(_ context.Context, id kernel.CandidateID) (*assignment.TalentSupply, error) {
	for _, t := range m.items {
		if t.SourceCandidateID != nil && *t.SourceCandidateID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, assignment.ErrTalentNotFound()
}

func (m *memTalents) Create(_ context.Context, t assignment.TalentSupply) error {
	m.items[t.ID] = &t
	return nil
}

func (m *memTalents) Lock(_ context.Context, id kernel.TalentID) error {
	if _, ok := m.items[id]; !ok {
		return assignment.ErrTalentNotFound()
	}
	m.locks = append(m.locks, id)
	return nil
}

func (m *memTalents) actual(id kernel.TalentID, status string) decimal.Decimal {
	total := decimal.Zero
	for _, a := range m.ledger.items {
		if a.TalentID == id && a.Status == status {
			total = total.Add(a.Percentage)
		}
	}
	return total
}

func (m *memTalents) Recompute(_ context.Context, id kernel.TalentID, status string) (*assignment.TalentSupply, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, assignment.ErrTalentNotFound()
	}
	t.TotalAssignmentPercentage = m.actual(id, status)
	t.AvailabilityPercentage = assignment.Availability(t.TotalAssignmentPercentage)
	cp := *t
	return &cp, nil
}

func (m *memTalents) RecomputeAll(ctx context.Context, status string) (int64, error) {
	for id := range m.items {
		if _, err := m.Recompute(ctx, id, status); err != nil {
			return 0, err
		}
	}
	return int64(len(m.items)), nil
}

func (m *memTalents) Totals(_ context.Context, status string) ([]assignment.TalentTotals, error) {
	var out []assignment.TalentTotals
	for id, t := range m.items {
		out = append(out, assignment.TalentTotals{
			TalentID: id,
			Name:     t.Name,
			Cached:   t.TotalAssignmentPercentage,
			Actual:   m.actual(id, status),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TalentID < out[j].TalentID })
	return out, nil
}

type memIntegrity struct {
	entries []assignment.IntegrityLogEntry
}

func (m *memIntegrity) Append(_ context.Context, entries []assignment.IntegrityLogEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memIntegrity) Recent(_ context.Context, limit int) ([]assignment.IntegrityLogEntry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func pdec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func setup(talentIDs ...kernel.TalentID) (*Engine, *memAssignments, *memTalents, *memIntegrity) {
	ledger := &memAssignments{items: map[kernel.AssignmentID]assignment.Assignment{}}
	talents := &memTalents{items: map[kernel.TalentID]*assignment.TalentSupply{}, ledger: ledger}
	for _, id := range talentIDs {
		talents.items[id] = &assignment.TalentSupply{ID: id, Name: string(id), AvailabilityPercentage: assignment.Hundred}
	}
	integrity := &memIntegrity{}
	engine := NewEngine(ledger, talents, integrity, dbx.NoopTxRunner{}, Policy{
		ActiveStatus: "Active",
		Tolerance:    dec("0.01"),
	})
	engine.now = func() time.Time { return time.Date(2025, 9, 15, 14, 30, 0, 0, time.UTC) }
	return engine, ledger, talents, integrity
}

func TestCreateDefaultsAndRecomputes(t *testing.T) {
	engine, _, talents, _ := setup("t-1")
	ctx := context.Background()

	a, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !a.Percentage.Equal(assignment.Hundred) || a.DurationMonths != 12 || a.Status != "Active" {
		t.Fatalf("unexpected defaults %+v", a)
	}
	if !a.StartDate.Equal(time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", a.StartDate)
	}
	if a.EndDate == nil || !a.EndDate.Equal(time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v", a.EndDate)
	}

	got := talents.items["t-1"]
	if !got.TotalAssignmentPercentage.Equal(assignment.Hundred) || !got.AvailabilityPercentage.IsZero() {
		t.Fatalf("totals not recomputed: %s / %s", got.TotalAssignmentPercentage, got.AvailabilityPercentage)
	}

	if _, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1"}); !errx.IsCode(err, assignment.CodeAssignmentAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	engine, _, _, _ := setup("t-1")
	ctx := context.Background()
	zero := 0

	cases := []struct {
		name string
		req  assignment.CreateRequest
		code string
	}{
		{"missing talent", assignment.CreateRequest{ClientID: "cl-1"}, assignment.CodeInvalidReference},
		{"over 100", assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1", Percentage: pdec("100.5")}, assignment.CodeInvalidPercentage},
		{"negative", assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1", Percentage: pdec("-1")}, assignment.CodeInvalidPercentage},
		{"zero duration", assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1", DurationMonths: &zero}, assignment.CodeInvalidDuration},
		{"unknown talent", assignment.CreateRequest{ClientID: "cl-1", TalentID: "ghost"}, assignment.CodeTalentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Create(ctx, tc.req); !errx.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestOverAllocationIsAllowed(t *testing.T) {
	engine, _, talents, _ := setup("t-1")
	ctx := context.Background()

	if _, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1", Percentage: pdec("70")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-2", TalentID: "t-1", Percentage: pdec("50")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got := talents.items["t-1"]
	if !got.TotalAssignmentPercentage.Equal(dec("120")) {
		t.Fatalf("total = %s", got.TotalAssignmentPercentage)
	}
	if !got.AvailabilityPercentage.IsZero() {
		t.Fatalf("availability must floor at zero, got %s", got.AvailabilityPercentage)
	}
	if !got.IsOverAllocated() {
		t.Fatalf("expected over-allocation")
	}
}

func TestUpdateMovesBetweenTalentsInLockOrder(t *testing.T) {
	engine, _, talents, _ := setup("t-a", "t-b")
	ctx := context.Background()

	a, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-b", Percentage: pdec("60")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	talents.locks = nil

	target := kernel.TalentID("t-a")
	months := 6
	updated, err := engine.Update(ctx, a.ID, assignment.UpdateRequest{TalentID: &target, DurationMonths: &months})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(talents.locks) != 2 || talents.locks[0] != "t-a" || talents.locks[1] != "t-b" {
		t.Fatalf("lock order = %v", talents.locks)
	}
	if !talents.items["t-b"].TotalAssignmentPercentage.IsZero() {
		t.Fatalf("old talent not recomputed: %s", talents.items["t-b"].TotalAssignmentPercentage)
	}
	if !talents.items["t-a"].TotalAssignmentPercentage.Equal(dec("60")) {
		t.Fatalf("new talent not recomputed: %s", talents.items["t-a"].TotalAssignmentPercentage)
	}
	if updated.EndDate == nil || !updated.EndDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date not recalculated: %v", updated.EndDate)
	}
}

func TestStatusChangeAndDeleteRecompute(t *testing.T) {
	engine, ledger, talents, _ := setup("t-1")
	ctx := context.Background()

	a, err := engine.Create(ctx, assignment.CreateRequest{ClientID: "cl-1", TalentID: "t-1", Percentage: pdec("40")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ended := "Completed"
	if _, err := engine.Update(ctx, a.ID, assignment.UpdateRequest{Status: &ended}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !talents.items["t-1"].TotalAssignmentPercentage.IsZero() {
		t.Fatalf("inactive assignment still counted")
	}

	if err := engine.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(ledger.items) != 0 {
		t.Fatalf("assignment not deleted")
	}
	if err := engine.Delete(ctx, a.ID); !errx.IsCode(err, assignment.CodeAssignmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateReportsDriftLargestFirst(t *testing.T) {
	engine, ledger, talents, _ := setup("t-1", "t-2", "t-3")
	ctx := context.Background()

	ledger.items["a-1"] = assignment.Assignment{ID: "a-1", ClientID: "cl", TalentID: "t-1", Percentage: dec("50"), Status: "Active"}
	ledger.items["a-2"] = assignment.Assignment{ID: "a-2", ClientID: "cl", TalentID: "t-2", Percentage: dec("100"), Status: "Active"}
	ledger.items["a-3"] = assignment.Assignment{ID: "a-3", ClientID: "cl", TalentID: "t-3", Percentage: dec("30"), Status: "Active"}
	talents.items["t-1"].TotalAssignmentPercentage = dec("40")
	talents.items["t-2"].TotalAssignmentPercentage = dec("0")
	talents.items["t-3"].TotalAssignmentPercentage = dec("30.005")

	report, err := engine.Validate(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.Consistent || report.Checked != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Drifted) != 2 {
		t.Fatalf("drifted = %+v", report.Drifted)
	}
	if report.Drifted[0].TalentID != "t-2" || report.Drifted[1].TalentID != "t-1" {
		t.Fatalf("drift order = %s, %s", report.Drifted[0].TalentID, report.Drifted[1].TalentID)
	}
	if !report.Drifted[1].Difference.Equal(dec("-10")) {
		t.Fatalf("difference = %s", report.Drifted[1].Difference)
	}
}

func TestIntegrityCheckLogsThenReconciles(t *testing.T) {
	engine, ledger, talents, integrity := setup("t-1", "t-2")
	ctx := context.Background()

	ledger.items["a-1"] = assignment.Assignment{ID: "a-1", ClientID: "cl", TalentID: "t-1", Percentage: dec("80"), Status: "Active"}
	ledger.items["a-2"] = assignment.Assignment{ID: "a-2", ClientID: "cl", TalentID: "t-2", Percentage: dec("70"), Status: "Active"}
	ledger.items["a-3"] = assignment.Assignment{ID: "a-3", ClientID: "cl2", TalentID: "t-2", Percentage: dec("50"), Status: "Active"}

	report, err := engine.RunIntegrityCheck(ctx)
	if err != nil {
		t.Fatalf("integrity check: %v", err)
	}
	if report.Logged != 2 || len(integrity.entries) != 2 {
		t.Fatalf("logged = %d", report.Logged)
	}
	for _, e := range integrity.entries {
		if e.CheckType != assignment.CheckAssignmentMismatch || !e.AutoFixed || !e.CachedValue.Valid {
			t.Fatalf("unexpected entry %+v", e)
		}
	}
	if report.Reconciled == nil || report.Reconciled.UpdatedCount != 2 {
		t.Fatalf("reconcile result %+v", report.Reconciled)
	}
	if len(report.Reconciled.OverAllocated) != 1 || report.Reconciled.OverAllocated[0] != "t-2" {
		t.Fatalf("over-allocated = %v", report.Reconciled.OverAllocated)
	}
	if !talents.items["t-2"].AvailabilityPercentage.IsZero() || !talents.items["t-1"].AvailabilityPercentage.Equal(dec("20")) {
		t.Fatalf("availability not reconciled")
	}

	again, err := engine.Validate(ctx)
	if err != nil || !again.Consistent {
		t.Fatalf("expected consistent after reconcile, got %+v %v", again, err)
	}
}
