package importer

import (
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
)

// Spreadsheet column headers produced by the aggregation sheet
const (
	FieldCandidateName       = "Candidate name"
	FieldRole                = "Role"
	FieldExperience          = "Experience"
	FieldSource              = "Source"
	FieldLocation            = "Location"
	FieldEmail               = "Email"
	FieldContactNumber       = "Contact Number"
	FieldExpectedCTC         = "Expected CTC"
	FieldStatus              = "Status"
	FieldPotentialClient     = "Potential Client"
	FieldVendorPartner       = "Vendor Partner"
	FieldNextSteps           = "Next Steps"
	FieldInterviewFeedback   = "Interview Feedback"
	FieldNoticePeriod        = "Notice Period"
	FieldPositionStartDate   = "Position Start Date"
	FieldProfileReceivedDate = "Profile Received Date"
)

// Fields lists the recognised columns in sheet order
var Fields = []string{
	FieldCandidateName, FieldRole, FieldExperience, FieldSource, FieldLocation,
	FieldEmail, FieldContactNumber, FieldExpectedCTC, FieldStatus, FieldPotentialClient,
	FieldVendorPartner, FieldNextSteps, FieldInterviewFeedback, FieldNoticePeriod,
	FieldPositionStartDate, FieldProfileReceivedDate,
}

// ============================================================================
// Raw rows
// ============================================================================

// RawRow is one aggregation row. It is read once by consolidation and never mutated.
type RawRow struct {
	ID          kernel.RawRowID   `json:"id"`
	DataSource  string            `json:"data_source"`
	Fields      map[string]string `json:"fields"`
	ContentHash string            `json:"content_hash,omitempty"`
	ReceivedAt  time.Time         `json:"received_at"`
}

// Get returns a field by header, tolerating case differences in the sheet header
func (r RawRow) Get(key string) string {
	if v, ok := r.Fields[key]; ok {
		return v
	}
	for k, v := range r.Fields {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v
		}
	}
	return ""
}

// Known projects the row onto the recognised columns; unknown headers are dropped
func (r RawRow) Known() map[string]string {
	out := make(map[string]string, len(Fields))
	for _, f := range Fields {
		if v := r.Get(f); v != "" {
			out[f] = v
		}
	}
	return out
}

// ============================================================================
// Consolidation report
// ============================================================================

type Outcome string

const (
	OutcomeInserted         Outcome = "inserted"
	OutcomeSkippedEmptyName Outcome = "skipped_empty_name"
	OutcomeSkippedExisting  Outcome = "skipped_existing"
	OutcomeError            Outcome = "error"
)

// IsSkip reports whether the outcome is an expected, non-error skip
func (o Outcome) IsSkip() bool {
	return o == OutcomeSkippedEmptyName || o == OutcomeSkippedExisting
}

// RowResult is the per-row detail of a consolidation run
type RowResult struct {
	RowID          kernel.RawRowID     `json:"row_id,omitempty"`
	Name           string              `json:"candidate_name"`
	Outcome        Outcome             `json:"outcome"`
	CandidateID    *kernel.CandidateID `json:"candidate_id,omitempty"`
	OriginalStatus string              `json:"original_status,omitempty"`
	Status         string              `json:"status,omitempty"`
	Flag           string              `json:"status_flag,omitempty"`
	DropReason     string              `json:"drop_reason,omitempty"`
	Source         string              `json:"source,omitempty"`
	VendorPartner  string              `json:"vendor_partner,omitempty"`
	Conflicts      []string            `json:"conflicts,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// Report summarises one consolidation run
type Report struct {
	DataSource       string         `json:"data_source"`
	Processed        int            `json:"processed"`
	Inserted         int            `json:"inserted"`
	Skipped          int            `json:"skipped"`
	SkippedEmptyName int            `json:"skipped_empty_name"`
	SkippedExisting  int            `json:"skipped_existing"`
	Errors           int            `json:"errors"`
	ByStatus         map[string]int `json:"by_status"`
	ByFlag           map[string]int `json:"by_flag"`
	BySource         map[string]int `json:"by_source"`
	Items            []RowResult    `json:"items"`
	Aborted          bool           `json:"aborted"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       time.Time      `json:"finished_at"`
}

func NewReport(dataSource string, startedAt time.Time) *Report {
	return &Report{
		DataSource: dataSource,
		ByStatus:   map[string]int{},
		ByFlag:     map[string]int{},
		BySource:   map[string]int{},
		Items:      []RowResult{},
		StartedAt:  startedAt,
	}
}

// Record folds one row result into the counters. Status, flag and source
// breakdowns only count rows that were inserted.
func (r *Report) Record(item RowResult) {
	r.Processed++
	r.Items = append(r.Items, item)

	switch item.Outcome {
	case OutcomeInserted:
		r.Inserted++
		r.ByStatus[item.Status]++
		if item.Flag != "" {
			r.ByFlag[item.Flag]++
		}
		if item.Source != "" {
			r.BySource[item.Source]++
		}
	case OutcomeSkippedEmptyName:
		r.Skipped++
		r.SkippedEmptyName++
	case OutcomeSkippedExisting:
		r.Skipped++
		r.SkippedExisting++
	case OutcomeError:
		r.Errors++
	}
}

// StageReport summarises a staging call
type StageReport struct {
	DataSource string   `json:"data_source"`
	Received   int      `json:"received"`
	Staged     int      `json:"staged"`
	Duplicates int      `json:"duplicates"`
	Files      []string `json:"files,omitempty"`
}

// SyncStatus is the last-run view exposed to the dashboard
type SyncStatus struct {
	DataSource string     `json:"data_source"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	Processed  int        `json:"processed"`
	Inserted   int        `json:"inserted"`
	Skipped    int        `json:"skipped"`
	Errors     int        `json:"errors"`
	Aborted    bool       `json:"aborted"`
	Pending    int        `json:"pending"`
	Running    bool       `json:"running"`
}

// FromReport builds the status snapshot of a finished run
func FromReport(r *Report) SyncStatus {
	finished := r.FinishedAt
	return SyncStatus{
		DataSource: r.DataSource,
		LastRunAt:  &finished,
		Duration:   r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
		Processed:  r.Processed,
		Inserted:   r.Inserted,
		Skipped:    r.Skipped,
		Errors:     r.Errors,
		Aborted:    r.Aborted,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("IMPORT")

var (
	CodeEmptyBatch        = ErrRegistry.Register("EMPTY_BATCH", errx.TypeValidation, http.StatusBadRequest, "No rows to import")
	CodeInvalidFile       = ErrRegistry.Register("INVALID_FILE", errx.TypeValidation, http.StatusBadRequest, "Import file could not be read")
	CodeMissingColumn     = ErrRegistry.Register("MISSING_COLUMN", errx.TypeValidation, http.StatusBadRequest, "Import file lacks the candidate name column")
	CodeRunInProgress     = ErrRegistry.Register("RUN_IN_PROGRESS", errx.TypeConflict, http.StatusConflict, "A consolidation run is already in progress")
	CodeStatusUnavailable = ErrRegistry.Register("STATUS_UNAVAILABLE", errx.TypeUnavailable, http.StatusServiceUnavailable, "Sync status store is unavailable")
)

func ErrEmptyBatch() *errx.Error {
	return ErrRegistry.New(CodeEmptyBatch)
}

func ErrInvalidFile() *errx.Error {
	return ErrRegistry.New(CodeInvalidFile)
}

func ErrMissingColumn() *errx.Error {
	return ErrRegistry.New(CodeMissingColumn)
}

func ErrRunInProgress() *errx.Error {
	return ErrRegistry.New(CodeRunInProgress)
}

func ErrStatusUnavailable() *errx.Error {
	return ErrRegistry.New(CodeStatusUnavailable)
}
