package assignment

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/shopspring/decimal"
)

var (
	Hundred = decimal.NewFromInt(100)
	Zero    = decimal.Zero
)

// ============================================================================
// Assignment Entity
// ============================================================================

// Assignment links a talent to a client for a share of capacity
type Assignment struct {
	ID             kernel.AssignmentID `db:"id" json:"id"`
	ClientID       kernel.ClientID     `db:"client_id" json:"client_id"`
	TalentID       kernel.TalentID     `db:"talent_id" json:"talent_id"`
	Percentage     decimal.Decimal     `db:"percentage" json:"percentage"`
	DurationMonths int                 `db:"duration_months" json:"duration_months"`
	StartDate      time.Time           `db:"start_date" json:"start_date"`
	EndDate        *time.Time          `db:"end_date" json:"end_date,omitempty"`
	Status         string              `db:"status" json:"status"`
	Notes          string              `db:"notes" json:"notes"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// ValidatePercentage enforces 0 ≤ p ≤ 100
func ValidatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(Hundred) {
		return ErrInvalidPercentage().WithDetail("percentage", p.String())
	}
	return nil
}

// EndDateFor is start plus duration months
func EndDateFor(start time.Time, months int) time.Time {
	return start.AddDate(0, months, 0)
}

// ============================================================================
// Talent supply
// ============================================================================

// TalentSupply is a talent with its cached capacity view. The totals are
// derived from the assignment ledger and never authoritative.
type TalentSupply struct {
	ID                        kernel.TalentID     `db:"id" json:"id"`
	Name                      string              `db:"name" json:"name"`
	Role                      string              `db:"role" json:"role"`
	Grade                     string              `db:"grade" json:"grade"`
	DOJ                       *time.Time          `db:"doj" json:"doj,omitempty"`
	AssignmentStatus          string              `db:"assignment_status" json:"assignment_status"`
	Type                      string              `db:"type" json:"type"`
	EmploymentStatus          string              `db:"employment_status" json:"employment_status"`
	Email                     string              `db:"email" json:"email"`
	YearsOfExp                decimal.Decimal     `db:"years_of_exp" json:"years_of_exp"`
	Skills                    string              `db:"skills" json:"skills"`
	Region                    string              `db:"region" json:"region"`
	Partner                   string              `db:"partner" json:"partner"`
	TotalAssignmentPercentage decimal.Decimal     `db:"total_assignment_percentage" json:"total_assignment_percentage"`
	AvailabilityPercentage    decimal.Decimal     `db:"availability_percentage" json:"availability_percentage"`
	SourceCandidateID         *kernel.CandidateID `db:"source_candidate_id" json:"source_candidate_id,omitempty"`
	CreatedAt                 time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time           `db:"updated_at" json:"updated_at"`
}

// IsOverAllocated reports a total above 100%
func (t *TalentSupply) IsOverAllocated() bool {
	return t.TotalAssignmentPercentage.GreaterThan(Hundred)
}

// Availability is 100 − total, floored at 0
func Availability(total decimal.Decimal) decimal.Decimal {
	return decimal.Max(Zero, Hundred.Sub(total))
}

// TalentTotals pairs the cached total with the ledger truth for one talent
type TalentTotals struct {
	TalentID kernel.TalentID `db:"talent_id"`
	Name     string          `db:"name"`
	Cached   decimal.Decimal `db:"cached"`
	Actual   decimal.Decimal `db:"actual"`
}

// ============================================================================
// Consistency reports
// ============================================================================

type Drift struct {
	TalentID   kernel.TalentID `json:"talent_id"`
	Name       string          `json:"name"`
	Cached     decimal.Decimal `json:"cached_total"`
	Actual     decimal.Decimal `json:"actual_total"`
	Difference decimal.Decimal `json:"difference"`
}

type ValidationReport struct {
	Consistent bool            `json:"consistent"`
	Checked    int             `json:"checked"`
	Tolerance  decimal.Decimal `json:"tolerance"`
	Drifted    []Drift         `json:"drifted_talents"`
	CheckedAt  time.Time       `json:"checked_at"`
}

type ReconcileResult struct {
	UpdatedCount  int64             `json:"updated_count"`
	OverAllocated []kernel.TalentID `json:"over_allocated,omitempty"`
}

// IntegrityLogEntry is one recorded consistency problem
type IntegrityLogEntry struct {
	ID          int64               `db:"id" json:"id"`
	CheckType   string              `db:"check_type" json:"check_type"`
	TableName   string              `db:"table_name" json:"table_name"`
	RecordID    string              `db:"record_id" json:"record_id"`
	Issue       string              `db:"issue" json:"issue"`
	CachedValue decimal.NullDecimal `db:"cached_value" json:"cached_value"`
	ActualValue decimal.NullDecimal `db:"actual_value" json:"actual_value"`
	AutoFixed   bool                `db:"auto_fixed" json:"auto_fixed"`
	LoggedAt    time.Time           `db:"logged_at" json:"logged_at"`
}

const CheckAssignmentMismatch = "assignment_mismatch"

type IntegrityReport struct {
	Validation *ValidationReport `json:"validation"`
	Logged     int               `json:"logged"`
	Reconciled *ReconcileResult  `json:"reconciled,omitempty"`
}

// ============================================================================
// DTOs
// ============================================================================

type CreateRequest struct {
	ClientID       kernel.ClientID  `json:"client_id"`
	TalentID       kernel.TalentID  `json:"talent_id"`
	Percentage     *decimal.Decimal `json:"percentage,omitempty"`
	DurationMonths *int             `json:"duration_months,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	Status         string           `json:"status,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

type UpdateRequest struct {
	ClientID       *kernel.ClientID `json:"client_id,omitempty"`
	TalentID       *kernel.TalentID `json:"talent_id,omitempty"`
	Percentage     *decimal.Decimal `json:"percentage,omitempty"`
	DurationMonths *int             `json:"duration_months,omitempty"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	Status         *string          `json:"status,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("ASSIGNMENT")

var (
	CodeAssignmentNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Assignment not found")
	CodeAssignmentAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "An assignment for this client and talent already exists")
	CodeTalentNotFound          = ErrRegistry.Register("TALENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Talent not found")
	CodeTalentAlreadyExists     = ErrRegistry.Register("TALENT_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "A talent already exists for this candidate")
	CodeInvalidPercentage       = ErrRegistry.Register("INVALID_PERCENTAGE", errx.TypeValidation, http.StatusBadRequest, "Percentage must be between 0 and 100")
	CodeInvalidDuration         = ErrRegistry.Register("INVALID_DURATION", errx.TypeValidation, http.StatusBadRequest, "Duration must be a positive number of months")
	CodeInvalidReference        = ErrRegistry.Register("INVALID_REFERENCE", errx.TypeValidation, http.StatusBadRequest, "Client and talent are required")
)

func ErrAssignmentNotFound() *errx.Error {
	return ErrRegistry.New(CodeAssignmentNotFound)
}

func ErrAssignmentAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeAssignmentAlreadyExists)
}

func ErrTalentNotFound() *errx.Error {
	return ErrRegistry.New(CodeTalentNotFound)
}

func ErrTalentAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeTalentAlreadyExists)
}

func ErrInvalidPercentage() *errx.Error {
	return ErrRegistry.New(CodeInvalidPercentage)
}

func ErrInvalidDuration() *errx.Error {
	return ErrRegistry.New(CodeInvalidDuration)
}

func ErrInvalidReference() *errx.Error {
	return ErrRegistry.New(CodeInvalidReference)
}
