package assignmentsrv

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/shopspring/decimal"
)

// Policy holds the numeric rules of the engine
type Policy struct {
	ActiveStatus          string
	Tolerance             decimal.Decimal
	DefaultPercentage     decimal.Decimal
	DefaultDurationMonths int
}

func PolicyFromConfig(cfg config.AssignmentPolicy) Policy {
	return Policy{
		ActiveStatus:          cfg.Status,
		Tolerance:             cfg.DriftTolerance,
		DefaultPercentage:     cfg.DefaultPercentage,
		DefaultDurationMonths: cfg.DefaultDurationMonths,
	}
}

// Engine keeps talent totals consistent with the assignment ledger. Every
// mutation locks the affected talents, changes the ledger and recomputes the
// cached totals inside one transaction.
type Engine struct {
	assignments assignment.AssignmentRepository
	talents     assignment.TalentRepository
	integrity   assignment.IntegrityLogRepository
	tx          dbx.TxRunner
	policy      Policy
	now         func() time.Time
}

func NewEngine(
	assignments assignment.AssignmentRepository,
	talents assignment.TalentRepository,
	integrity assignment.IntegrityLogRepository,
	tx dbx.TxRunner,
	policy Policy,
) *Engine {
	if policy.ActiveStatus == "" {
		policy.ActiveStatus = "Active"
	}
	if policy.DefaultPercentage.IsZero() {
		policy.DefaultPercentage = assignment.Hundred
	}
	if policy.DefaultDurationMonths <= 0 {
		policy.DefaultDurationMonths = 12
	}
	return &Engine{
		assignments: assignments,
		talents:     talents,
		integrity:   integrity,
		tx:          tx,
		policy:      policy,
		now:         time.Now,
	}
}

func (e *Engine) Policy() Policy {
	return e.policy
}

// ============================================================================
// Reads
// ============================================================================

func (e *Engine) Get(ctx context.Context, id kernel.AssignmentID) (*assignment.Assignment, error) {
	return e.assignments.FindByID(ctx, id)
}

// FindByClientTalent returns the assignment linking client and talent
func (e *Engine) FindByClientTalent(ctx context.Context, clientID kernel.ClientID, talentID kernel.TalentID) (*assignment.Assignment, error) {
	return e.assignments.FindByClientTalent(ctx, clientID, talentID)
}

func (e *Engine) Talent(ctx context.Context, id kernel.TalentID) (*assignment.TalentSupply, []assignment.Assignment, error) {
	t, err := e.talents.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := e.assignments.ListByTalent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return t, items, nil
}

// ============================================================================
// Mutations
// ============================================================================

// Create inserts an assignment. A second assignment for the same client and
// talent is rejected with ALREADY_EXISTS.
func (e *Engine) Create(ctx context.Context, req assignment.CreateRequest) (*assignment.Assignment, error) {
	if req.ClientID.IsEmpty() || req.TalentID.IsEmpty() {
		return nil, assignment.ErrInvalidReference()
	}

	pct := e.policy.DefaultPercentage
	if req.Percentage != nil {
		pct = *req.Percentage
	}
	if err := assignment.ValidatePercentage(pct); err != nil {
		return nil, err
	}

	months := e.policy.DefaultDurationMonths
	if req.DurationMonths != nil {
		months = *req.DurationMonths
	}
	if months <= 0 {
		return nil, assignment.ErrInvalidDuration().WithDetail("duration_months", months)
	}

	now := e.now()
	start := dateOnly(now)
	if req.StartDate != nil {
		start = dateOnly(*req.StartDate)
	}
	end := assignment.EndDateFor(start, months)

	status := req.Status
	if status == "" {
		status = e.policy.ActiveStatus
	}

	a := assignment.Assignment{
		ID:             kernel.NewAssignmentID(),
		ClientID:       req.ClientID,
		TalentID:       req.TalentID,
		Percentage:     pct,
		DurationMonths: months,
		StartDate:      start,
		EndDate:        &end,
		Status:         status,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		if err := e.talents.Lock(ctx, a.TalentID); err != nil {
			return err
		}

		existing, err := e.assignments.FindByClientTalent(ctx, a.ClientID, a.TalentID)
		if err != nil && !errx.IsCode(err, assignment.CodeAssignmentNotFound) {
			return err
		}
		if existing != nil {
			return assignment.ErrAssignmentAlreadyExists().
				WithDetail("assignment_id", existing.ID.String()).
				WithDetail("client_id", a.ClientID.String()).
				WithDetail("talent_id", a.TalentID.String())
		}

		if err := e.assignments.Create(ctx, a); err != nil {
			return err
		}
		_, err = e.recompute(ctx, a.TalentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"assignment_id": a.ID,
		"client_id":     a.ClientID,
		"talent_id":     a.TalentID,
		"percentage":    a.Percentage.String(),
	}).Info("Assignment created")

	return &a, nil
}

// Update changes an assignment. Moving it to another talent locks and
// recomputes both talents, in id order.
func (e *Engine) Update(ctx context.Context, id kernel.AssignmentID, req assignment.UpdateRequest) (*assignment.Assignment, error) {
	var updated assignment.Assignment

	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := e.assignments.FindByID(ctx, id)
		if err != nil {
			return err
		}

		next := *current
		if req.ClientID != nil {
			next.ClientID = *req.ClientID
		}
		if req.TalentID != nil {
			next.TalentID = *req.TalentID
		}
		if next.ClientID.IsEmpty() || next.TalentID.IsEmpty() {
			return assignment.ErrInvalidReference()
		}

		for _, tid := range lockOrder(current.TalentID, next.TalentID) {
			if err := e.talents.Lock(ctx, tid); err != nil {
				return err
			}
		}

		if req.Percentage != nil {
			if err := assignment.ValidatePercentage(*req.Percentage); err != nil {
				return err
			}
			next.Percentage = *req.Percentage
		}

		recalcEnd := false
		if req.DurationMonths != nil {
			if *req.DurationMonths <= 0 {
				return assignment.ErrInvalidDuration().WithDetail("duration_months", *req.DurationMonths)
			}
			next.DurationMonths = *req.DurationMonths
			recalcEnd = true
		}
		if req.StartDate != nil {
			next.StartDate = dateOnly(*req.StartDate)
			recalcEnd = true
		}
		if req.EndDate != nil {
			end := dateOnly(*req.EndDate)
			next.EndDate = &end
		} else if recalcEnd {
			end := assignment.EndDateFor(next.StartDate, next.DurationMonths)
			next.EndDate = &end
		}
		if req.Status != nil && *req.Status != "" {
			next.Status = *req.Status
		}
		if req.Notes != nil {
			next.Notes = *req.Notes
		}
		next.UpdatedAt = e.now()

		if err := e.assignments.Update(ctx, next); err != nil {
			return err
		}

		for _, tid := range lockOrder(current.TalentID, next.TalentID) {
			if _, err := e.recompute(ctx, tid); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"assignment_id": updated.ID,
		"talent_id":     updated.TalentID,
		"status":        updated.Status,
	}).Info("Assignment updated")

	return &updated, nil
}

func (e *Engine) Delete(ctx context.Context, id kernel.AssignmentID) error {
	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := e.assignments.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := e.talents.Lock(ctx, current.TalentID); err != nil {
			return err
		}
		if err := e.assignments.Delete(ctx, id); err != nil {
			return err
		}
		_, err = e.recompute(ctx, current.TalentID)
		return err
	})
	if err != nil {
		return err
	}

	logx.WithField("assignment_id", id).Info("Assignment deleted")
	return nil
}

// OnAssignmentChanged recomputes one talent's totals. Inside an outer
// transaction it joins it; otherwise it runs in its own.
func (e *Engine) OnAssignmentChanged(ctx context.Context, talentID kernel.TalentID) (*assignment.TalentSupply, error) {
	var t *assignment.TalentSupply
	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		if err := e.talents.Lock(ctx, talentID); err != nil {
			return err
		}
		var err error
		t, err = e.recompute(ctx, talentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) recompute(ctx context.Context, talentID kernel.TalentID) (*assignment.TalentSupply, error) {
	t, err := e.talents.Recompute(ctx, talentID, e.policy.ActiveStatus)
	if err != nil {
		return nil, err
	}
	if t.IsOverAllocated() {
		logx.WithFields(logx.Fields{
			"talent_id": t.ID,
			"name":      t.Name,
			"total":     t.TotalAssignmentPercentage.String(),
		}).Warn("Talent is over-allocated")
	}
	return t, nil
}

// ============================================================================
// Consistency
// ============================================================================

// Validate compares every cached total against the ledger
func (e *Engine) Validate(ctx context.Context) (*assignment.ValidationReport, error) {
	totals, err := e.talents.Totals(ctx, e.policy.ActiveStatus)
	if err != nil {
		return nil, err
	}

	report := &assignment.ValidationReport{
		Checked:   len(totals),
		Tolerance: e.policy.Tolerance,
		Drifted:   []assignment.Drift{},
		CheckedAt: e.now(),
	}

	for _, t := range totals {
		diff := t.Cached.Sub(t.Actual)
		if diff.Abs().GreaterThan(e.policy.Tolerance) {
			report.Drifted = append(report.Drifted, assignment.Drift{
				TalentID:   t.TalentID,
				Name:       t.Name,
				Cached:     t.Cached,
				Actual:     t.Actual,
				Difference: diff,
			})
		}
	}

	sort.SliceStable(report.Drifted, func(i, j int) bool {
		a, b := report.Drifted[i].Difference.Abs(), report.Drifted[j].Difference.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return report.Drifted[i].TalentID < report.Drifted[j].TalentID
	})
	report.Consistent = len(report.Drifted) == 0

	if !report.Consistent {
		logx.WithFields(logx.Fields{
			"checked": report.Checked,
			"drifted": len(report.Drifted),
		}).Warn("Assignment totals drifted from the ledger")
	}

	return report, nil
}

// ReconcileAll rewrites every talent's totals from the ledger
func (e *Engine) ReconcileAll(ctx context.Context) (*assignment.ReconcileResult, error) {
	result := &assignment.ReconcileResult{}

	err := e.tx.InTx(ctx, func(ctx context.Context) error {
		n, err := e.talents.RecomputeAll(ctx, e.policy.ActiveStatus)
		if err != nil {
			return err
		}
		result.UpdatedCount = n

		totals, err := e.talents.Totals(ctx, e.policy.ActiveStatus)
		if err != nil {
			return err
		}
		for _, t := range totals {
			if t.Actual.GreaterThan(assignment.Hundred) {
				result.OverAllocated = append(result.OverAllocated, t.TalentID)
				logx.WithFields(logx.Fields{
					"talent_id": t.TalentID,
					"name":      t.Name,
					"total":     t.Actual.String(),
				}).Warn("Talent is over-allocated")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"updated":        result.UpdatedCount,
		"over_allocated": len(result.OverAllocated),
	}).Info("Talent totals reconciled")

	return result, nil
}

// RunIntegrityCheck records every drifted talent in the integrity log and
// then reconciles all totals
func (e *Engine) RunIntegrityCheck(ctx context.Context) (*assignment.IntegrityReport, error) {
	validation, err := e.Validate(ctx)
	if err != nil {
		return nil, err
	}

	report := &assignment.IntegrityReport{Validation: validation}

	if len(validation.Drifted) > 0 {
		at := e.now()
		entries := make([]assignment.IntegrityLogEntry, 0, len(validation.Drifted))
		for _, d := range validation.Drifted {
			entries = append(entries, assignment.IntegrityLogEntry{
				CheckType:   assignment.CheckAssignmentMismatch,
				TableName:   "talent_supply",
				RecordID:    d.TalentID.String(),
				Issue:       fmt.Sprintf("cached total %s does not match ledger total %s", d.Cached.StringFixed(2), d.Actual.StringFixed(2)),
				CachedValue: decimal.NewNullDecimal(d.Cached),
				ActualValue: decimal.NewNullDecimal(d.Actual),
				AutoFixed:   true,
				LoggedAt:    at,
			})
		}
		if err := e.integrity.Append(ctx, entries); err != nil {
			return nil, err
		}
		report.Logged = len(entries)
	}

	reconciled, err := e.ReconcileAll(ctx)
	if err != nil {
		return report, err
	}
	report.Reconciled = reconciled
	return report, nil
}

func (e *Engine) IntegrityLog(ctx context.Context, limit int) ([]assignment.IntegrityLogEntry, error) {
	return e.integrity.Recent(ctx, limit)
}

// lockOrder returns the distinct talent ids in ascending order
func lockOrder(a, b kernel.TalentID) []kernel.TalentID {
	if a == b {
		return []kernel.TalentID{a}
	}
	if b < a {
		a, b = b, a
	}
	return []kernel.TalentID{a, b}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
