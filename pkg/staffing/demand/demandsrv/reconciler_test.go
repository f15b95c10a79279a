package demandsrv

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentsrv"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Fakes
// ============================================================================

type memCandidates struct {
	items map[kernel.CandidateID]*candidate.Candidate
}

func (m *memCandidates) FindByID(_ context.Context, id kernel.CandidateID) (*candidate.Candidate, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, candidate.ErrCandidateNotFound()
	}
	cp := *c
	return &cp, nil
}

func (m *memCandidates) ExistsByNameKey(context.Context, string) (bool, error) { return false, nil }
func (m *memCandidates) Create(_ context.Context, c candidate.Candidate) error {
	m.items[c.ID] = &c
	return nil
}
func (m *memCandidates) List(context.Context, candidate.ListFilter) ([]*candidate.Candidate, error) {
	return nil, nil
}
func (m *memCandidates) UpdateStatus(context.Context, candidate.Candidate) error { return nil }

func (m *memCandidates) LinkTalent(_ context.Context, id kernel.CandidateID, talentID kernel.TalentID, _ time.Time) error {
	c, ok := m.items[id]
	if !ok {
		return candidate.ErrCandidateNotFound()
	}
	c.LinkedTalentID = &talentID
	return nil
}

func (m *memCandidates) FindUnlinkedByStatus(_ context.Context, status string, clientID *kernel.ClientID) ([]*candidate.Candidate, error) {
	var out []*candidate.Candidate
	for _, c := range m.items {
		if c.Status != status || c.IsLinked() {
			continue
		}
		if clientID != nil && (c.ClientID == nil || *c.ClientID != *clientID) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCandidates) AppendStatusChange(context.Context, candidate.StatusChange) error { return nil }
func (m *memCandidates) StatusHistory(context.Context, kernel.CandidateID) ([]candidate.StatusChange, error) {
	return nil, nil
}

type memClients struct{}

func (memClients) FindByID(_ context.Context, id kernel.ClientID) (*candidate.Client, error) {
	if strings.HasPrefix(string(id), "cl-") {
		return &candidate.Client{ID: id, Name: string(id)}, nil
	}
	return nil, candidate.ErrClientNotFound()
}
func (memClients) FindByNamePartial(context.Context, string) (*candidate.Client, error) {
	return nil, candidate.ErrClientNotFound()
}
func (memClients) List(context.Context) ([]candidate.Client, error) { return nil, nil }
func (memClients) Save(context.Context, candidate.Client) error      { return nil }

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

func (m *memAssignments) ListByTalent(context.Context, kernel.TalentID) ([]assignment.Assignment, error) {
	return nil, nil
}

func (m *memAssignments) Create(_ context.Context, a assignment.Assignment) error {
	m.items[a.ID] = a
	return nil
}

func (m *memAssignments) Update(_ context.Context, a assignment.Assignment) error {
	m.items[a.ID] = a
	return nil
}

func (m *memAssignments) Delete(_ context.Context, id kernel.AssignmentID) error {
	delete(m.items, id)
	return nil
}

type memTalents struct {
	items  map[kernel.TalentID]*assignment.TalentSupply
	ledger *memAssignments
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
	return nil
}

func (m *memTalents) Recompute(_ context.Context, id kernel.TalentID, status string) (*assignment.TalentSupply, error) {
	t, ok := m.items[id]
	if !ok {
		return nil, assignment.ErrTalentNotFound()
	}
	total := decimal.Zero
	for _, a := range m.ledger.items {
		if a.TalentID == id && a.Status == status {
			total = total.Add(a.Percentage)
		}
	}
	t.TotalAssignmentPercentage = total
	t.AvailabilityPercentage = assignment.Availability(total)
	cp := *t
	return &cp, nil
}

func (m *memTalents) RecomputeAll(context.Context, string) (int64, error) { return 0, nil }
func (m *memTalents) Totals(context.Context, string) ([]assignment.TalentTotals, error) {
	return nil, nil
}

type memLedger struct {
	rows []demand.LedgerRow
	fail error
}

func (m *memLedger) FindOpenDemand(_ context.Context, clientID kernel.ClientID, booked, billed string) ([]demand.OpenDemand, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	groups := map[string]*demand.OpenDemand{}
	var keys []string
	for _, r := range m.rows {
		if r.ClientID != clientID {
			continue
		}
		key := r.Offering + "|" + r.Owner
		g, ok := groups[key]
		if !ok {
			g = &demand.OpenDemand{ClientID: clientID, Offering: r.Offering, Owner: r.Owner}
			groups[key] = g
			keys = append(keys, key)
		}
		switch r.MetricType {
		case booked:
			g.Booked = g.Booked.Add(r.Value)
		case billed:
			g.Billed = g.Billed.Add(r.Value)
		}
	}
	var out []demand.OpenDemand
	for _, k := range keys {
		g := groups[k]
		g.Available = g.Booked.Sub(g.Billed)
		if g.Available.IsPositive() {
			out = append(out, *g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Available.GreaterThan(out[j].Available) })
	return out, nil
}

func (m *memLedger) Latest(_ context.Context, clientID kernel.ClientID, metric string, positiveOnly bool) (*demand.LedgerRow, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.ClientID != clientID || r.MetricType != metric {
			continue
		}
		if positiveOnly && !r.Value.IsPositive() {
			continue
		}
		return &r, nil
	}
	return nil, demand.ErrLedgerRowNotFound()
}

func (m *memLedger) UpdateValue(_ context.Context, id kernel.LedgerRowID, value decimal.Decimal, at time.Time) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].Value = value
			m.rows[i].UpdatedAt = at
			return nil
		}
	}
	return demand.ErrLedgerRowNotFound()
}

func (m *memLedger) Insert(_ context.Context, row demand.LedgerRow) error {
	m.rows = append(m.rows, row)
	return nil
}

func (m *memLedger) sum(clientID kernel.ClientID, metric string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range m.rows {
		if r.ClientID == clientID && r.MetricType == metric {
			total = total.Add(r.Value)
		}
	}
	return total
}

type fixture struct {
	rec        *Reconciler
	candidates *memCandidates
	ledger     *memLedger
	talents    *memTalents
	books      *memAssignments
}

func newFixture(rows ...demand.LedgerRow) *fixture {
	client := kernel.ClientID("cl-1")
	vendor := "Coffeebeans"
	candidates := &memCandidates{items: map[kernel.CandidateID]*candidate.Candidate{
		"c-1": {ID: "c-1", Name: "Jane Roe", Role: "Backend Engineer", Status: normalize.StatusOnBoarded, ClientID: &client, Source: "Direct", ExperienceLevel: "4.5 yrs", Location: "Pune"},
		"c-2": {ID: "c-2", Name: "Ravi Kumar", Role: "QA", Status: normalize.StatusOnBoarded, ClientID: &client, Source: "Vendor", VendorPartner: &vendor},
		"c-3": {ID: "c-3", Name: "No Client", Status: normalize.StatusOnBoarded},
	}}
	books := &memAssignments{items: map[kernel.AssignmentID]assignment.Assignment{}}
	talents := &memTalents{items: map[kernel.TalentID]*assignment.TalentSupply{}, ledger: books}
	ledger := &memLedger{rows: rows}

	policy := config.DefaultStaffingConfig()
	engine := assignmentsrv.NewEngine(books, talents, nil, dbx.NoopTxRunner{}, assignmentsrv.PolicyFromConfig(policy.Assignment))
	rec := NewReconciler(candidates, memClients{}, talents, engine, ledger, dbx.NoopTxRunner{}, policy)
	return &fixture{rec: rec, candidates: candidates, ledger: ledger, talents: talents, books: books}
}

func bookedRow(id string, value int64, at time.Time) demand.LedgerRow {
	return demand.LedgerRow{
		ID: kernel.LedgerRowID(id), ClientID: "cl-1", AccountName: "Acme", Offering: "Engineering",
		Owner: "Asha", Region: "India", MetricType: "Booked", Value: decimal.NewFromInt(value), CreatedAt: at,
	}
}

var t0 = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

// ============================================================================
// Tests
// ============================================================================

func TestOnHireCreatesTalentAssignmentAndShiftsLedger(t *testing.T) {
	f := newFixture(bookedRow("b-1", 2, t0), bookedRow("b-2", 3, t0.Add(time.Hour)))
	ctx := context.Background()

	res, err := f.rec.OnHire(ctx, "c-1", "cl-1")
	if err != nil {
		t.Fatalf("on hire: %v", err)
	}
	if !res.Success || !res.AssignmentCreated || !res.FinancialsUpdated || res.AlreadyProcessed {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.DemandRecordsFound != 1 || res.TalentID == nil || res.AssignmentID == nil {
		t.Fatalf("unexpected result %+v", res)
	}

	talent := f.talents.items[*res.TalentID]
	if talent.Type != normalize.TalentFTE || talent.Partner != "Greyamp" || talent.Grade != "Mid" || talent.AssignmentStatus != "Allocated" {
		t.Fatalf("unexpected talent %+v", talent)
	}
	if !talent.YearsOfExp.Equal(decimal.RequireFromString("4.5")) || talent.Region != "Pune" {
		t.Fatalf("unexpected talent details %+v", talent)
	}
	if !talent.TotalAssignmentPercentage.Equal(assignment.Hundred) || !talent.AvailabilityPercentage.IsZero() {
		t.Fatalf("talent totals %s / %s", talent.TotalAssignmentPercentage, talent.AvailabilityPercentage)
	}

	a := f.books.items[*res.AssignmentID]
	if a.Status != "Active" || a.DurationMonths != 12 || a.EndDate == nil || !a.EndDate.Equal(a.StartDate.AddDate(1, 0, 0)) {
		t.Fatalf("unexpected assignment %+v", a)
	}

	if got := f.ledger.rows[1].Value; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("latest booked row = %s, want 2", got)
	}
	if got := f.ledger.rows[0].Value; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("older booked row touched: %s", got)
	}
	if len(f.ledger.rows) != 3 {
		t.Fatalf("billed row not created")
	}
	billed := f.ledger.rows[2]
	if billed.MetricType != "Billed" || !billed.Value.Equal(decimal.NewFromInt(1)) || billed.Offering != "Engineering" || billed.Region != "India" || billed.ID == "b-2" {
		t.Fatalf("unexpected billed row %+v", billed)
	}

	if linked := f.candidates.items["c-1"].LinkedTalentID; linked == nil || *linked != *res.TalentID {
		t.Fatalf("candidate not linked")
	}
}

func TestOnHireIsIdempotent(t *testing.T) {
	f := newFixture(bookedRow("b-1", 5, t0))
	ctx := context.Background()

	if _, err := f.rec.OnHire(ctx, "c-1", "cl-1"); err != nil {
		t.Fatalf("first hire: %v", err)
	}
	res, err := f.rec.OnHire(ctx, "c-1", "cl-1")
	if err != nil {
		t.Fatalf("second hire: %v", err)
	}
	if !res.Success || !res.AlreadyProcessed || res.AssignmentCreated || res.FinancialsUpdated {
		t.Fatalf("unexpected second result %+v", res)
	}
	if len(f.books.items) != 1 || len(f.talents.items) != 1 {
		t.Fatalf("assignments = %d, talents = %d", len(f.books.items), len(f.talents.items))
	}
	if !f.ledger.sum("cl-1", "Booked").Equal(decimal.NewFromInt(4)) || !f.ledger.sum("cl-1", "Billed").Equal(decimal.NewFromInt(1)) {
		t.Fatalf("ledger shifted twice: booked %s billed %s", f.ledger.sum("cl-1", "Booked"), f.ledger.sum("cl-1", "Billed"))
	}
}

func TestOnHireRepeatAfterLastDemandConsumed(t *testing.T) {
	f := newFixture(bookedRow("b-1", 1, t0))
	ctx := context.Background()

	first, err := f.rec.OnHire(ctx, "c-1", "cl-1")
	if err != nil || !first.AssignmentCreated {
		t.Fatalf("first hire: %+v %v", first, err)
	}
	res, err := f.rec.OnHire(ctx, "c-1", "cl-1")
	if err != nil {
		t.Fatalf("second hire: %v", err)
	}
	if !res.Success || !res.AlreadyProcessed || res.AssignmentCreated || res.FinancialsUpdated {
		t.Fatalf("unexpected second result %+v", res)
	}
	if res.AssignmentID == nil || *res.AssignmentID != *first.AssignmentID {
		t.Fatalf("second result should point at the existing assignment: %+v", res)
	}
	if len(f.books.items) != 1 {
		t.Fatalf("assignments = %d", len(f.books.items))
	}
	if !f.ledger.sum("cl-1", "Booked").IsZero() || !f.ledger.sum("cl-1", "Billed").Equal(decimal.NewFromInt(1)) {
		t.Fatalf("ledger shifted twice: booked %s billed %s", f.ledger.sum("cl-1", "Booked"), f.ledger.sum("cl-1", "Billed"))
	}
}

func TestOnHireStoresImplausibleExperienceAsZero(t *testing.T) {
	f := newFixture(bookedRow("b-1", 1, t0))
	f.candidates.items["c-1"].ExperienceLevel = "Since 2015"

	res, err := f.rec.OnHire(context.Background(), "c-1", "cl-1")
	if err != nil {
		t.Fatalf("on hire: %v", err)
	}
	if talent := f.talents.items[*res.TalentID]; !talent.YearsOfExp.IsZero() {
		t.Fatalf("years of experience = %s", talent.YearsOfExp)
	}
}

func TestOnHireIncrementsExistingBilledRow(t *testing.T) {
	billed := bookedRow("bl-1", 1, t0)
	billed.MetricType = "Billed"
	f := newFixture(bookedRow("b-1", 3, t0), billed)

	res, err := f.rec.OnHire(context.Background(), "c-2", "cl-1")
	if err != nil {
		t.Fatalf("on hire: %v", err)
	}
	if !res.FinancialsUpdated {
		t.Fatalf("financials not updated: %+v", res)
	}
	if len(f.ledger.rows) != 2 || !f.ledger.rows[1].Value.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("billed row not incremented: %+v", f.ledger.rows)
	}

	talent := f.talents.items[*res.TalentID]
	if talent.Type != normalize.TalentNonFTE || talent.Partner != "Coffeebeans" {
		t.Fatalf("vendor hire typed as %s / %s", talent.Type, talent.Partner)
	}
}

func TestOnHireWithoutOpenDemand(t *testing.T) {
	billed := bookedRow("bl-1", 2, t0)
	billed.MetricType = "Billed"
	f := newFixture(bookedRow("b-1", 2, t0), billed)

	res, err := f.rec.OnHire(context.Background(), "c-1", "cl-1")
	if err != nil {
		t.Fatalf("no open demand must not be an error: %v", err)
	}
	if res.Success || res.AssignmentCreated || res.Message == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.books.items) != 0 || len(f.talents.items) != 0 {
		t.Fatalf("nothing should be written without open demand")
	}
}

func TestOnHireValidation(t *testing.T) {
	f := newFixture(bookedRow("b-1", 2, t0))
	ctx := context.Background()

	if _, err := f.rec.OnHire(ctx, "", "cl-1"); !errx.IsCode(err, demand.CodeCandidateRequired) {
		t.Fatalf("expected candidate required, got %v", err)
	}
	if _, err := f.rec.OnHire(ctx, "c-1", ""); !errx.IsCode(err, demand.CodeClientRequired) {
		t.Fatalf("expected client required, got %v", err)
	}
	if _, err := f.rec.OnHire(ctx, "ghost", "cl-1"); !errx.IsCode(err, candidate.CodeCandidateNotFound) {
		t.Fatalf("expected candidate not found, got %v", err)
	}
	if _, err := f.rec.OnHire(ctx, "c-1", "unknown"); !errx.IsCode(err, candidate.CodeClientNotFound) {
		t.Fatalf("expected client not found, got %v", err)
	}
}

func TestBatchProcessRecordsPerCandidateOutcome(t *testing.T) {
	f := newFixture(bookedRow("b-1", 1, t0))

	result, err := f.rec.BatchProcess(context.Background(), nil)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if result.Processed != 3 || result.Succeeded != 1 || result.NoDemand != 1 || result.Failed != 1 || result.Aborted {
		t.Fatalf("unexpected batch result %+v", result)
	}
	if result.Items[2].CandidateID != "c-3" || result.Items[2].Error == "" {
		t.Fatalf("candidate without client should fail: %+v", result.Items[2])
	}

	again, err := f.rec.BatchProcess(context.Background(), nil)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if again.Processed != 2 {
		t.Fatalf("linked candidates must be skipped, processed %d", again.Processed)
	}
}

func TestBatchProcessAbortsOnUnavailableStore(t *testing.T) {
	f := newFixture(bookedRow("b-1", 5, t0))
	f.ledger.fail = errx.New("connection refused", errx.TypeUnavailable)

	result, err := f.rec.BatchProcess(context.Background(), nil)
	if err == nil || !result.Aborted {
		t.Fatalf("expected aborted batch, got %+v %v", result, err)
	}
	if result.Processed != 1 {
		t.Fatalf("processed = %d", result.Processed)
	}
}

func TestHireHandlerAdapter(t *testing.T) {
	f := newFixture(bookedRow("b-1", 1, t0))

	outcome, err := f.rec.HireHandler().OnHire(context.Background(), "c-1", "cl-1")
	if err != nil {
		t.Fatalf("hire hook: %v", err)
	}
	if !outcome.Success || !outcome.AssignmentCreated || !outcome.FinancialsUpdated {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}
