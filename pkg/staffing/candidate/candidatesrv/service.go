package candidatesrv

import (
	"context"
	"strings"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
)

// Service owns the explicit (non-import) candidate workflows
type Service struct {
	repo       candidate.CandidateRepository
	clients    candidate.ClientDirectory
	tx         dbx.TxRunner
	hire       candidate.HireHandler
	hireStatus string
	now        func() time.Time
}

// NewService wires the candidate workflow. hire may be nil, in which case
// hired transitions are recorded without reconciliation.
func NewService(
	repo candidate.CandidateRepository,
	clients candidate.ClientDirectory,
	tx dbx.TxRunner,
	hire candidate.HireHandler,
	hireStatus string,
) *Service {
	return &Service{
		repo:       repo,
		clients:    clients,
		tx:         tx,
		hire:       hire,
		hireStatus: hireStatus,
		now:        time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id kernel.CandidateID) (*candidate.Candidate, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter candidate.ListFilter) ([]*candidate.Candidate, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) History(ctx context.Context, id kernel.CandidateID) ([]candidate.StatusChange, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, id)
}

func (s *Service) Clients(ctx context.Context) ([]candidate.Client, error) {
	return s.clients.List(ctx)
}

// ChangeStatus moves a candidate to a new status, records the transition and,
// when the new status is the hired one, hands the candidate to the hire hook.
func (s *Service) ChangeStatus(ctx context.Context, id kernel.CandidateID, req candidate.ChangeStatusRequest, actor string) (*candidate.ChangeStatusResponse, error) {
	raw := strings.TrimSpace(req.Status)
	if raw == "" {
		return nil, candidate.ErrInvalidStatus()
	}
	res := normalize.NormalizeStatus(raw)

	var (
		updated  *candidate.Candidate
		previous string
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		previous = c.Status

		if req.ClientID != nil && !req.ClientID.IsEmpty() {
			client, err := s.clients.FindByID(ctx, *req.ClientID)
			if err != nil {
				return err
			}
			c.ClientID = &client.ID
		}

		now := s.now()
		c.ApplyStatus(res, now)
		updated = c

		if previous == c.Status && req.ClientID == nil {
			return nil
		}
		if err := s.repo.UpdateStatus(ctx, *c); err != nil {
			return err
		}
		return s.repo.AppendStatusChange(ctx, candidate.StatusChange{
			CandidateID: c.ID,
			OldStatus:   previous,
			NewStatus:   c.Status,
			ChangedBy:   actor,
			Notes:       req.Notes,
			ChangedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := &candidate.ChangeStatusResponse{Candidate: updated, Previous: previous}
	if updated.IsHired(s.hireStatus) {
		resp.Hire = s.triggerHire(ctx, updated)
	}
	return resp, nil
}

func (s *Service) triggerHire(ctx context.Context, c *candidate.Candidate) *candidate.HireOutcome {
	if c.ClientID == nil {
		return &candidate.HireOutcome{Message: "candidate has no client reference; hire not reconciled"}
	}
	if s.hire == nil {
		return &candidate.HireOutcome{Message: "hire reconciliation is not configured"}
	}

	outcome, err := s.hire.OnHire(ctx, c.ID, *c.ClientID)
	if err != nil {
		logx.WithFields(logx.Fields{
			"candidate_id": c.ID.String(),
			"client_id":    c.ClientID.String(),
		}).Errorf("hire reconciliation failed: %v", err)
		msg := "hire reconciliation failed"
		if e, ok := errx.As(err); ok {
			msg = e.Message
		}
		return &candidate.HireOutcome{Message: msg}
	}
	return outcome
}
