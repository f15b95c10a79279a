package demand

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Ledger
// ============================================================================

// LedgerRow is one (client, metric, period) observation of the sales ledger
type LedgerRow struct {
	ID            kernel.LedgerRowID `db:"id" json:"id"`
	ClientID      kernel.ClientID    `db:"client_id" json:"client_id"`
	AccountName   string             `db:"account_name" json:"account_name"`
	AccountTrack  string             `db:"account_track" json:"account_track"`
	Owner         string             `db:"owner" json:"owner"`
	Source        string             `db:"source" json:"source"`
	Industry      string             `db:"industry" json:"industry"`
	Region        string             `db:"region" json:"region"`
	LOB           string             `db:"lob" json:"lob"`
	Offering      string             `db:"offering" json:"offering"`
	FinancialYear string             `db:"financial_year" json:"financial_year"`
	Year          *int               `db:"year" json:"year,omitempty"`
	Month         string             `db:"month" json:"month"`
	MonthNumber   *int               `db:"month_number" json:"month_number,omitempty"`
	PartnerOrg    string             `db:"partner_org" json:"partner_org"`
	Status        string             `db:"status" json:"status"`
	Duration      string             `db:"duration" json:"duration"`
	MetricType    string             `db:"metric_type" json:"metric_type"`
	Value         decimal.Decimal    `db:"value" json:"value"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// CopyAs returns a new row carrying the same dimensions under another metric
func (r LedgerRow) CopyAs(metric string, value decimal.Decimal, at time.Time) LedgerRow {
	out := r
	out.ID = kernel.NewLedgerRowID()
	out.MetricType = metric
	out.Value = value
	out.CreatedAt = at
	out.UpdatedAt = at
	return out
}

// OpenDemand is unfulfilled demand for one (client, offering, owner) group
type OpenDemand struct {
	ClientID    kernel.ClientID `db:"client_id" json:"client_id"`
	AccountName string          `db:"account_name" json:"account_name"`
	Offering    string          `db:"offering" json:"offering"`
	Owner       string          `db:"owner" json:"owner"`
	Booked      decimal.Decimal `db:"total_booked" json:"total_booked"`
	Billed      decimal.Decimal `db:"total_billed" json:"total_billed"`
	Available   decimal.Decimal `db:"available_positions" json:"available_positions"`
}

// ============================================================================
// Reconciliation results
// ============================================================================

type HireResult struct {
	CandidateID        kernel.CandidateID   `json:"candidate_id"`
	ClientID           kernel.ClientID      `json:"client_id"`
	Success            bool                 `json:"success"`
	AssignmentCreated  bool                 `json:"assignment_created"`
	FinancialsUpdated  bool                 `json:"financials_updated"`
	AlreadyProcessed   bool                 `json:"already_processed"`
	DemandRecordsFound int                  `json:"demand_records_found"`
	AssignmentID       *kernel.AssignmentID `json:"assignment_id,omitempty"`
	TalentID           *kernel.TalentID     `json:"talent_id,omitempty"`
	Message            string               `json:"message"`
}

type BatchItem struct {
	CandidateID kernel.CandidateID `json:"candidate_id"`
	Name        string             `json:"candidate_name"`
	Result      *HireResult        `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type BatchResult struct {
	Processed        int         `json:"processed"`
	Succeeded        int         `json:"succeeded"`
	AlreadyProcessed int         `json:"already_processed"`
	NoDemand         int         `json:"no_demand"`
	Failed           int         `json:"failed"`
	Aborted          bool        `json:"aborted"`
	Items            []BatchItem `json:"items"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       time.Time   `json:"finished_at"`
}

// ============================================================================
// DTOs
// ============================================================================

type HireRequest struct {
	CandidateID kernel.CandidateID `json:"candidate_id"`
	ClientID    *kernel.ClientID   `json:"client_id,omitempty"`
}

type BatchRequest struct {
	ClientID *kernel.ClientID `json:"client_id,omitempty"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("DEMAND")

var (
	CodeLedgerRowNotFound = ErrRegistry.Register("LEDGER_ROW_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Ledger row not found")
	CodeClientRequired    = ErrRegistry.Register("CLIENT_REQUIRED", errx.TypeValidation, http.StatusBadRequest, "A client is required to reconcile a hire")
	CodeCandidateRequired = ErrRegistry.Register("CANDIDATE_REQUIRED", errx.TypeValidation, http.StatusBadRequest, "candidate_id is required")
)

func ErrLedgerRowNotFound() *errx.Error {
	return ErrRegistry.New(CodeLedgerRowNotFound)
}

func ErrClientRequired() *errx.Error {
	return ErrRegistry.New(CodeClientRequired)
}

func ErrCandidateRequired() *errx.Error {
	return ErrRegistry.New(CodeCandidateRequired)
}
