package candidate

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/kernel"
)

// CandidateRepository persists canonical candidates. Implementations join the
// transaction bound to ctx when there is one.
type CandidateRepository interface {
	FindByID(ctx context.Context, id kernel.CandidateID) (*Candidate, error)
	ExistsByNameKey(ctx context.Context, nameKey string) (bool, error)
	Create(ctx context.Context, c Candidate) error
	List(ctx context.Context, filter ListFilter) ([]*Candidate, error)
	UpdateStatus(ctx context.Context, c Candidate) error
	LinkTalent(ctx context.Context, id kernel.CandidateID, talentID kernel.TalentID, at time.Time) error
	FindUnlinkedByStatus(ctx context.Context, status string, clientID *kernel.ClientID) ([]*Candidate, error)
	AppendStatusChange(ctx context.Context, change StatusChange) error
	StatusHistory(ctx context.Context, id kernel.CandidateID) ([]StatusChange, error)
}

// ClientDirectory is the read side of the known-clients table
type ClientDirectory interface {
	FindByID(ctx context.Context, id kernel.ClientID) (*Client, error)
	// FindByNamePartial does a case-insensitive partial match; first match wins
	FindByNamePartial(ctx context.Context, name string) (*Client, error)
	List(ctx context.Context) ([]Client, error)
	Save(ctx context.Context, c Client) error
}

// HireHandler is notified when a candidate enters the hired status
type HireHandler interface {
	OnHire(ctx context.Context, candidateID kernel.CandidateID, clientID kernel.ClientID) (*HireOutcome, error)
}
