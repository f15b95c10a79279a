package assignment

import (
	"context"

	"github.com/Abraxas-365/talentledger/pkg/kernel"
)

type AssignmentRepository interface {
	FindByID(ctx context.Context, id kernel.AssignmentID) (*Assignment, error)
	FindByClientTalent(ctx context.Context, clientID kernel.ClientID, talentID kernel.TalentID) (*Assignment, error)
	ListByTalent(ctx context.Context, talentID kernel.TalentID) ([]Assignment, error)
	Create(ctx context.Context, a Assignment) error
	Update(ctx context.Context, a Assignment) error
	Delete(ctx context.Context, id kernel.AssignmentID) error
}

// TalentRepository owns talent rows and their cached totals
type TalentRepository interface {
	FindByID(ctx context.Context, id kernel.TalentID) (*TalentSupply, error)
	FindBySourceCandidate(ctx context.Context, candidateID kernel.CandidateID) (*TalentSupply, error)
	Create(ctx context.Context, t TalentSupply) error

	// Lock takes the talent row lock for the rest of the transaction
	Lock(ctx context.Context, id kernel.TalentID) error
	// Recompute rewrites one talent's totals from the ledger in a single statement
	Recompute(ctx context.Context, id kernel.TalentID, activeStatus string) (*TalentSupply, error)
	RecomputeAll(ctx context.Context, activeStatus string) (int64, error)
	Totals(ctx context.Context, activeStatus string) ([]TalentTotals, error)
}

type IntegrityLogRepository interface {
	Append(ctx context.Context, entries []IntegrityLogEntry) error
	Recent(ctx context.Context, limit int) ([]IntegrityLogEntry, error)
}
