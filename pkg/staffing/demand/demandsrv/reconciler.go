package demandsrv

import (
	"context"
	"fmt"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentsrv"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
)

// Reconciler turns a hire into a talent, an assignment and one unit of
// demand moved from booked to billed
type Reconciler struct {
	candidates candidate.CandidateRepository
	clients    candidate.ClientDirectory
	talents    assignment.TalentRepository
	engine     *assignmentsrv.Engine
	ledger     demand.LedgerRepository
	tx         dbx.TxRunner
	policy     config.StaffingConfig
	now        func() time.Time
}

func NewReconciler(
	candidates candidate.CandidateRepository,
	clients candidate.ClientDirectory,
	talents assignment.TalentRepository,
	engine *assignmentsrv.Engine,
	ledger demand.LedgerRepository,
	tx dbx.TxRunner,
	policy config.StaffingConfig,
) *Reconciler {
	return &Reconciler{
		candidates: candidates,
		clients:    clients,
		talents:    talents,
		engine:     engine,
		ledger:     ledger,
		tx:         tx,
		policy:     policy,
		now:        time.Now,
	}
}

// OpenDemand lists unfulfilled demand for a client
func (r *Reconciler) OpenDemand(ctx context.Context, clientID kernel.ClientID) ([]demand.OpenDemand, error) {
	if clientID.IsEmpty() {
		return nil, demand.ErrClientRequired()
	}
	return r.ledger.FindOpenDemand(ctx, clientID, r.policy.Ledger.BookedMetric, r.policy.Ledger.BilledMetric)
}

// OnHire reconciles one hired candidate against the client's open demand.
// No open demand and an already processed hire are reported in the result,
// not as errors. Running it twice creates one assignment and shifts the
// ledger once.
func (r *Reconciler) OnHire(ctx context.Context, candidateID kernel.CandidateID, clientID kernel.ClientID) (*demand.HireResult, error) {
	if candidateID.IsEmpty() {
		return nil, demand.ErrCandidateRequired()
	}
	if clientID.IsEmpty() {
		return nil, demand.ErrClientRequired()
	}

	result := &demand.HireResult{CandidateID: candidateID, ClientID: clientID}

	cand, err := r.candidates.FindByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if _, err := r.clients.FindByID(ctx, clientID); err != nil {
		return nil, err
	}

	existing, err := r.existingAssignment(ctx, cand.ID, clientID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		talentID, assignmentID := existing.TalentID, existing.ID
		if !cand.IsLinked() {
			if err := r.candidates.LinkTalent(ctx, cand.ID, talentID, r.now()); err != nil {
				return nil, err
			}
		}
		result.TalentID = &talentID
		result.AssignmentID = &assignmentID
		result.Success = true
		result.AlreadyProcessed = true
		result.Message = "hire already reconciled"
		logx.WithFields(logx.Fields{
			"candidate_id": candidateID,
			"client_id":    clientID,
			"talent_id":    talentID,
		}).Info("Hire already reconciled")
		return result, nil
	}

	open, err := r.OpenDemand(ctx, clientID)
	if err != nil {
		return nil, err
	}
	result.DemandRecordsFound = len(open)
	if len(open) == 0 {
		result.Message = "no open demand for client"
		logx.WithFields(logx.Fields{
			"candidate_id": candidateID,
			"client_id":    clientID,
		}).Info("Hire not reconciled: no open demand")
		return result, nil
	}

	err = r.tx.InTx(ctx, func(ctx context.Context) error {
		talent, err := r.ensureTalent(ctx, cand)
		if err != nil {
			return err
		}
		talentID := talent.ID
		result.TalentID = &talentID

		created, err := r.engine.Create(ctx, assignment.CreateRequest{
			ClientID:       clientID,
			TalentID:       talentID,
			Percentage:     &r.policy.Assignment.DefaultPercentage,
			DurationMonths: &r.policy.Assignment.DefaultDurationMonths,
			Status:         r.policy.Assignment.Status,
			Notes:          fmt.Sprintf("Created on hire of candidate %s", cand.Name),
		})
		switch {
		case errx.IsCode(err, assignment.CodeAssignmentAlreadyExists):
			result.AlreadyProcessed = true
		case err != nil:
			return err
		default:
			result.AssignmentCreated = true
			id := created.ID
			result.AssignmentID = &id

			shifted, err := r.shiftFinancials(ctx, clientID)
			if err != nil {
				return err
			}
			result.FinancialsUpdated = shifted
		}

		if _, err := r.engine.OnAssignmentChanged(ctx, talentID); err != nil {
			return err
		}
		if !cand.IsLinked() || *cand.LinkedTalentID != talentID {
			return r.candidates.LinkTalent(ctx, cand.ID, talentID, r.now())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Success = true
	switch {
	case result.AlreadyProcessed:
		result.Message = "hire already reconciled"
	case result.FinancialsUpdated:
		result.Message = "assignment created and financials updated"
	default:
		result.Message = "assignment created; no booked demand row to shift"
	}

	logx.WithFields(logx.Fields{
		"candidate_id":       candidateID,
		"client_id":          clientID,
		"talent_id":          result.TalentID,
		"assignment_created": result.AssignmentCreated,
		"financials_updated": result.FinancialsUpdated,
		"already_processed":  result.AlreadyProcessed,
	}).Info("Hire reconciled")

	return result, nil
}

// existingAssignment returns the assignment a previous hire of this candidate
// created for the client, or nil
func (r *Reconciler) existingAssignment(ctx context.Context, candidateID kernel.CandidateID, clientID kernel.ClientID) (*assignment.Assignment, error) {
	talent, err := r.talents.FindBySourceCandidate(ctx, candidateID)
	if errx.IsCode(err, assignment.CodeTalentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	existing, err := r.engine.FindByClientTalent(ctx, clientID, talent.ID)
	if errx.IsCode(err, assignment.CodeAssignmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// ensureTalent returns the talent created from this candidate, creating it
// on first hire
func (r *Reconciler) ensureTalent(ctx context.Context, c *candidate.Candidate) (*assignment.TalentSupply, error) {
	existing, err := r.talents.FindBySourceCandidate(ctx, c.ID)
	if err == nil {
		return existing, nil
	}
	if !errx.IsCode(err, assignment.CodeTalentNotFound) {
		return nil, err
	}

	t := r.talentFromCandidate(c)
	if err := r.talents.Create(ctx, t); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"talent_id":    t.ID,
		"candidate_id": c.ID,
		"type":         t.Type,
	}).Info("Talent created from hired candidate")

	return &t, nil
}

func (r *Reconciler) talentFromCandidate(c *candidate.Candidate) assignment.TalentSupply {
	now := r.now()
	doj := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	vendor := ""
	if c.VendorPartner != nil {
		vendor = *c.VendorPartner
	}
	talentType := normalize.TalentType(c.Source, vendor, r.policy.Talent.VendorIndicators)

	partner := vendor
	if partner == "" {
		partner = c.Source
	}
	if talentType == normalize.TalentFTE {
		partner = r.policy.Talent.InternalPartner
	}

	candidateID := c.ID
	return assignment.TalentSupply{
		ID:                     kernel.NewTalentID(),
		Name:                   c.Name,
		Role:                   c.Role,
		Grade:                  r.policy.Talent.DefaultGrade,
		DOJ:                    &doj,
		AssignmentStatus:       r.policy.Talent.AllocatedStatus,
		Type:                   talentType,
		EmploymentStatus:       r.policy.Talent.EmploymentStatus,
		Email:                  c.Email,
		YearsOfExp:             normalize.YearsOfExperience(c.ExperienceLevel),
		Region:                 c.Location,
		Partner:                partner,
		AvailabilityPercentage: assignment.Hundred,
		SourceCandidateID:      &candidateID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// shiftFinancials moves one unit from the newest positive booked row to the
// newest billed row, creating the billed row from the booked dimensions when
// the client has none
func (r *Reconciler) shiftFinancials(ctx context.Context, clientID kernel.ClientID) (bool, error) {
	unit := r.policy.Ledger.Unit
	now := r.now()

	booked, err := r.ledger.Latest(ctx, clientID, r.policy.Ledger.BookedMetric, true)
	if err != nil {
		if errx.IsCode(err, demand.CodeLedgerRowNotFound) {
			logx.WithField("client_id", clientID).Warn("No booked ledger row to shift")
			return false, nil
		}
		return false, err
	}

	remaining := booked.Value.Sub(unit)
	if remaining.IsNegative() {
		remaining = assignment.Zero
	}
	if err := r.ledger.UpdateValue(ctx, booked.ID, remaining, now); err != nil {
		return false, err
	}

	billed, err := r.ledger.Latest(ctx, clientID, r.policy.Ledger.BilledMetric, false)
	switch {
	case err == nil:
		if err := r.ledger.UpdateValue(ctx, billed.ID, billed.Value.Add(unit), now); err != nil {
			return false, err
		}
	case errx.IsCode(err, demand.CodeLedgerRowNotFound):
		if err := r.ledger.Insert(ctx, booked.CopyAs(r.policy.Ledger.BilledMetric, unit, now)); err != nil {
			return false, err
		}
	default:
		return false, err
	}

	return true, nil
}

// BatchProcess reconciles every hired candidate that has no talent yet.
// Individual failures are recorded per item; only connection-class failures
// stop the batch.
func (r *Reconciler) BatchProcess(ctx context.Context, clientID *kernel.ClientID) (*demand.BatchResult, error) {
	result := &demand.BatchResult{StartedAt: r.now(), Items: []demand.BatchItem{}}

	pending, err := r.candidates.FindUnlinkedByStatus(ctx, r.policy.HireStatus, clientID)
	if err != nil {
		return nil, err
	}

	for _, c := range pending {
		item := demand.BatchItem{CandidateID: c.ID, Name: c.Name}
		result.Processed++

		if c.ClientID == nil || c.ClientID.IsEmpty() {
			item.Error = demand.ErrClientRequired().Error()
			result.Failed++
			result.Items = append(result.Items, item)
			continue
		}

		res, err := r.OnHire(ctx, c.ID, *c.ClientID)
		if err != nil {
			if dbx.IsFatal(err) {
				result.Aborted = true
				result.FinishedAt = r.now()
				logx.WithFields(logx.Fields{
					"candidate_id": c.ID,
					"processed":    result.Processed,
				}).Errorf("Hire batch aborted: %v", err)
				return result, err
			}
			item.Error = err.Error()
			result.Failed++
			logx.WithFields(logx.Fields{
				"candidate_id": c.ID,
				"client_id":    *c.ClientID,
			}).Warnf("Hire reconciliation failed: %v", err)
		} else {
			item.Result = res
			switch {
			case res.AlreadyProcessed:
				result.AlreadyProcessed++
			case !res.Success:
				result.NoDemand++
			default:
				result.Succeeded++
			}
		}
		result.Items = append(result.Items, item)
	}

	result.FinishedAt = r.now()
	logx.WithFields(logx.Fields{
		"processed":         result.Processed,
		"succeeded":         result.Succeeded,
		"already_processed": result.AlreadyProcessed,
		"no_demand":         result.NoDemand,
		"failed":            result.Failed,
	}).Info("Hire batch finished")

	return result, nil
}

// HireHandler adapts the reconciler to the candidate status workflow
func (r *Reconciler) HireHandler() candidate.HireHandler {
	return hireHook{r: r}
}

type hireHook struct {
	r *Reconciler
}

func (h hireHook) OnHire(ctx context.Context, candidateID kernel.CandidateID, clientID kernel.ClientID) (*candidate.HireOutcome, error) {
	res, err := h.r.OnHire(ctx, candidateID, clientID)
	if err != nil {
		return nil, err
	}
	return &candidate.HireOutcome{
		Success:           res.Success,
		AssignmentCreated: res.AssignmentCreated,
		FinancialsUpdated: res.FinancialsUpdated,
		AlreadyProcessed:  res.AlreadyProcessed,
		Message:           res.Message,
	}, nil
}

