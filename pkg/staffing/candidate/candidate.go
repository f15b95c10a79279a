package candidate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/normalize"
)

// ============================================================================
// Candidate Entity
// ============================================================================

// Candidate is the canonical, append-only candidate record. Imports only ever
// create it; status changes go through explicit workflow calls.
type Candidate struct {
	ID                  kernel.CandidateID `db:"id" json:"id"`
	Name                string             `db:"candidate_name" json:"candidate_name"`
	NameKey             string             `db:"name_key" json:"-"`
	Role                string             `db:"role" json:"role"`
	ExperienceLevel     string             `db:"experience_level" json:"experience_level"`
	Source              string             `db:"source" json:"source"`
	VendorPartner       *string            `db:"vendor_partner" json:"vendor_partner,omitempty"`
	Location            string             `db:"location" json:"location"`
	Email               string             `db:"email" json:"email"`
	ContactNumber       string             `db:"contact_number" json:"contact_number"`
	ExpectedCTC         string             `db:"expected_ctc" json:"expected_ctc"`
	NextSteps           string             `db:"next_steps" json:"next_steps"`
	InterviewFeedback   string             `db:"interview_feedback" json:"interview_feedback"`
	NoticePeriod        string             `db:"notice_period" json:"notice_period"`
	Status              string             `db:"status" json:"status"`
	StatusFlag          *string            `db:"status_flag" json:"status_flag,omitempty"`
	DropReason          *string            `db:"drop_reason" json:"drop_reason,omitempty"`
	WorkflowStageID     int                `db:"workflow_stage_id" json:"workflow_stage_id"`
	ClientID            *kernel.ClientID   `db:"client_id" json:"client_id,omitempty"`
	ProfileReceivedDate *time.Time         `db:"profile_received_date" json:"profile_received_date,omitempty"`
	PositionStartDate   *time.Time         `db:"position_start_date" json:"position_start_date,omitempty"`
	LinkedTalentID      *kernel.TalentID   `db:"linked_talent_id" json:"linked_talent_id,omitempty"`

	// Provenance
	DataSource      string      `db:"data_source" json:"data_source"`
	SourceRowID     *string     `db:"source_row_id" json:"source_row_id,omitempty"`
	OriginalStatus  string      `db:"original_status" json:"original_status"`
	ImportConflicts ImportNotes `db:"import_conflicts" json:"import_conflicts,omitempty"`
	ImportedAt      *time.Time  `db:"imported_at" json:"imported_at,omitempty"`

	StatusChangedAt *time.Time `db:"status_changed_at" json:"status_changed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsHired reports whether the candidate sits in the hired terminal status
func (c *Candidate) IsHired(hireStatus string) bool {
	return c.Status == hireStatus
}

// IsLinked reports whether a talent record exists for this candidate
func (c *Candidate) IsLinked() bool {
	return c.LinkedTalentID != nil && !c.LinkedTalentID.IsEmpty()
}

// ApplyStatus sets the canonical status fields from a normalized result
func (c *Candidate) ApplyStatus(res normalize.StatusResult, now time.Time) {
	c.Status = res.Status
	c.StatusFlag = nil
	if res.Flag != normalize.FlagNone {
		flag := string(res.Flag)
		c.StatusFlag = &flag
	}
	c.DropReason = nil
	if res.DropReason != "" {
		reason := res.DropReason
		c.DropReason = &reason
	}
	c.WorkflowStageID = normalize.WorkflowStage(res.Status + " " + res.DropReason)
	c.StatusChangedAt = &now
	c.UpdatedAt = now
}

// ImportNotes holds provenance details and conflicts flagged for manual review
type ImportNotes map[string]any

func (n ImportNotes) Value() (driver.Value, error) {
	if n == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n)
}

func (n *ImportNotes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*n = ImportNotes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported import notes type %T", src)
	}
	out := ImportNotes{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*n = out
	return nil
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	ID        kernel.ClientID `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ============================================================================
// Status history
// ============================================================================

type StatusChange struct {
	ID          int64              `db:"id" json:"id"`
	CandidateID kernel.CandidateID `db:"candidate_id" json:"candidate_id"`
	OldStatus   string             `db:"old_status" json:"old_status"`
	NewStatus   string             `db:"new_status" json:"new_status"`
	ChangedBy   string             `db:"changed_by" json:"changed_by"`
	Notes       string             `db:"notes" json:"notes"`
	ChangedAt   time.Time          `db:"changed_at" json:"changed_at"`
}

// ============================================================================
// DTOs
// ============================================================================

type ChangeStatusRequest struct {
	Status   string           `json:"status"`
	ClientID *kernel.ClientID `json:"client_id,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

type ListFilter struct {
	Status   string
	ClientID *kernel.ClientID
	Limit    int
	Offset   int
}

// HireOutcome is what the hire hook reports back to the status workflow
type HireOutcome struct {
	Success           bool   `json:"success"`
	AssignmentCreated bool   `json:"assignment_created"`
	FinancialsUpdated bool   `json:"financials_updated"`
	AlreadyProcessed  bool   `json:"already_processed"`
	Message           string `json:"message"`
}

type ChangeStatusResponse struct {
	Candidate *Candidate   `json:"candidate"`
	Previous  string       `json:"previous_status"`
	Hire      *HireOutcome `json:"hire,omitempty"`
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CANDIDATE")

var (
	CodeCandidateNotFound      = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Candidate not found")
	CodeCandidateAlreadyExists = ErrRegistry.Register("ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "A candidate with this name already exists")
	CodeClientNotFound         = ErrRegistry.Register("CLIENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Client not found")
	CodeClientAlreadyExists    = ErrRegistry.Register("CLIENT_ALREADY_EXISTS", errx.TypeConflict, http.StatusConflict, "A client with this name already exists")
	CodeInvalidStatus          = ErrRegistry.Register("INVALID_STATUS", errx.TypeValidation, http.StatusBadRequest, "Status is required")
	CodeClientRequired         = ErrRegistry.Register("CLIENT_REQUIRED", errx.TypeBusiness, http.StatusUnprocessableEntity, "A client is required for the hired status")
)

func ErrCandidateNotFound() *errx.Error {
	return ErrRegistry.New(CodeCandidateNotFound)
}

func ErrCandidateAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeCandidateAlreadyExists)
}

func ErrClientNotFound() *errx.Error {
	return ErrRegistry.New(CodeClientNotFound)
}

func ErrClientAlreadyExists() *errx.Error {
	return ErrRegistry.New(CodeClientAlreadyExists)
}

func ErrInvalidStatus() *errx.Error {
	return ErrRegistry.New(CodeInvalidStatus)
}

func ErrClientRequired() *errx.Error {
	return ErrRegistry.New(CodeClientRequired)
}
