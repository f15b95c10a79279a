package importinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
	"github.com/jmoiron/sqlx"
)

// rawRowRecord is the structured-column shape of raw_import_rows
type rawRowRecord struct {
	ID                  string    `db:"id"`
	DataSource          string    `db:"data_source"`
	CandidateName       string    `db:"candidate_name"`
	Role                string    `db:"role"`
	Experience          string    `db:"experience"`
	Source              string    `db:"source"`
	Location            string    `db:"location"`
	Email               string    `db:"email"`
	ContactNumber       string    `db:"contact_number"`
	ExpectedCTC         string    `db:"expected_ctc"`
	Status              string    `db:"status"`
	PotentialClient     string    `db:"potential_client"`
	VendorPartner       string    `db:"vendor_partner"`
	NextSteps           string    `db:"next_steps"`
	InterviewFeedback   string    `db:"interview_feedback"`
	NoticePeriod        string    `db:"notice_period"`
	PositionStartDate   string    `db:"position_start_date"`
	ProfileReceivedDate string    `db:"profile_received_date"`
	ContentHash         string    `db:"content_hash"`
	ReceivedAt          time.Time `db:"received_at"`
}

func toRecord(row importer.RawRow) rawRowRecord {
	return rawRowRecord{
		ID:                  row.ID.String(),
		DataSource:          row.DataSource,
		CandidateName:       row.Get(importer.FieldCandidateName),
		Role:                row.Get(importer.FieldRole),
		Experience:          row.Get(importer.FieldExperience),
		Source:              row.Get(importer.FieldSource),
		Location:            row.Get(importer.FieldLocation),
		Email:               row.Get(importer.FieldEmail),
		ContactNumber:       row.Get(importer.FieldContactNumber),
		ExpectedCTC:         row.Get(importer.FieldExpectedCTC),
		Status:              row.Get(importer.FieldStatus),
		PotentialClient:     row.Get(importer.FieldPotentialClient),
		VendorPartner:       row.Get(importer.FieldVendorPartner),
		NextSteps:           row.Get(importer.FieldNextSteps),
		InterviewFeedback:   row.Get(importer.FieldInterviewFeedback),
		NoticePeriod:        row.Get(importer.FieldNoticePeriod),
		PositionStartDate:   row.Get(importer.FieldPositionStartDate),
		ProfileReceivedDate: row.Get(importer.FieldProfileReceivedDate),
		ContentHash:         row.ContentHash,
		ReceivedAt:          row.ReceivedAt,
	}
}

func (r rawRowRecord) toRow() importer.RawRow {
	fields := map[string]string{
		importer.FieldCandidateName:       r.CandidateName,
		importer.FieldRole:                r.Role,
		importer.FieldExperience:          r.Experience,
		importer.FieldSource:              r.Source,
		importer.FieldLocation:            r.Location,
		importer.FieldEmail:               r.Email,
		importer.FieldContactNumber:       r.ContactNumber,
		importer.FieldExpectedCTC:         r.ExpectedCTC,
		importer.FieldStatus:              r.Status,
		importer.FieldPotentialClient:     r.PotentialClient,
		importer.FieldVendorPartner:       r.VendorPartner,
		importer.FieldNextSteps:           r.NextSteps,
		importer.FieldInterviewFeedback:   r.InterviewFeedback,
		importer.FieldNoticePeriod:        r.NoticePeriod,
		importer.FieldPositionStartDate:   r.PositionStartDate,
		importer.FieldProfileReceivedDate: r.ProfileReceivedDate,
	}
	return importer.RawRow{
		ID:          kernel.RawRowID(r.ID),
		DataSource:  r.DataSource,
		Fields:      fields,
		ContentHash: r.ContentHash,
		ReceivedAt:  r.ReceivedAt,
	}
}

const rawRowColumns = `
	id, data_source, candidate_name, role, experience, source, location, email,
	contact_number, expected_ctc, status, potential_client, vendor_partner,
	next_steps, interview_feedback, notice_period, position_start_date,
	profile_received_date, content_hash, received_at`

// PostgresRawRowStore stages rows in raw_import_rows
type PostgresRawRowStore struct {
	db *sqlx.DB
}

func NewPostgresRawRowStore(db *sqlx.DB) importer.RawRowStore {
	return &PostgresRawRowStore{db: db}
}

// Stage relies on the content hash constraint to drop duplicate submissions
func (s *PostgresRawRowStore) Stage(ctx context.Context, row importer.RawRow) (bool, error) {
	query := `
		INSERT INTO raw_import_rows (` + rawRowColumns + `
		) VALUES (
			:id, :data_source, :candidate_name, :role, :experience, :source, :location, :email,
			:contact_number, :expected_ctc, :status, :potential_client, :vendor_partner,
			:next_steps, :interview_feedback, :notice_period, :position_start_date,
			:profile_received_date, :content_hash, :received_at
		)
		ON CONFLICT ON CONSTRAINT raw_import_rows_content_hash_key DO NOTHING`

	result, err := dbx.Executor(ctx, s.db).NamedExecContext(ctx, query, toRecord(row))
	if err != nil {
		return false, dbx.WrapErr(err, "failed to stage raw row").
			WithDetail("data_source", row.DataSource)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, dbx.WrapErr(err, "failed to read staged row count")
	}
	return n == 1, nil
}

// Pending returns unconsolidated rows after the cursor, oldest first
func (s *PostgresRawRowStore) Pending(ctx context.Context, dataSource string, after importer.PendingCursor, limit int) ([]importer.RawRow, error) {
	query := `
		SELECT ` + rawRowColumns + `
		FROM raw_import_rows
		WHERE consolidated_at IS NULL AND data_source = $1
			AND (received_at, id) > ($2, $3)
		ORDER BY received_at, id
		LIMIT $4`

	var records []rawRowRecord
	if err := dbx.Executor(ctx, s.db).SelectContext(ctx, &records, query, dataSource, after.ReceivedAt, after.ID.String(), limit); err != nil {
		return nil, dbx.WrapErr(err, "failed to load pending raw rows").
			WithDetail("data_source", dataSource)
	}

	rows := make([]importer.RawRow, len(records))
	for i, rec := range records {
		rows[i] = rec.toRow()
	}
	return rows, nil
}

func (s *PostgresRawRowStore) CountPending(ctx context.Context, dataSource string) (int, error) {
	var n int
	err := dbx.Executor(ctx, s.db).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM raw_import_rows WHERE consolidated_at IS NULL AND data_source = $1`, dataSource)
	if err != nil {
		return 0, dbx.WrapErr(err, "failed to count pending raw rows")
	}
	return n, nil
}

func (s *PostgresRawRowStore) MarkConsolidated(ctx context.Context, id kernel.RawRowID, outcome importer.Outcome, at time.Time) error {
	_, err := dbx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE raw_import_rows SET consolidated_at = $2, outcome = $3 WHERE id = $1`,
		id.String(), at, string(outcome))
	if err != nil {
		return dbx.WrapErr(err, "failed to mark raw row consolidated").
			WithDetail("row_id", id.String())
	}
	return nil
}

// PurgeProcessed deletes consolidated rows older than the cutoff
func (s *PostgresRawRowStore) PurgeProcessed(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := dbx.Executor(ctx, s.db).ExecContext(ctx,
		`DELETE FROM raw_import_rows WHERE consolidated_at IS NOT NULL AND consolidated_at < $1`, olderThan)
	if err != nil {
		return 0, dbx.WrapErr(err, "failed to purge processed raw rows")
	}
	n, _ := result.RowsAffected()
	return n, nil
}
