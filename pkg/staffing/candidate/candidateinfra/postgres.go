package candidateinfra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/jmoiron/sqlx"
)

const candidateColumns = `
	id, candidate_name, name_key, role, experience_level, source, vendor_partner,
	location, email, contact_number, expected_ctc, next_steps, interview_feedback,
	notice_period, status, status_flag, drop_reason, workflow_stage_id, client_id,
	profile_received_date, position_start_date, linked_talent_id, data_source,
	source_row_id, original_status, import_conflicts, imported_at, status_changed_at,
	created_at, updated_at`

const nameKeyConstraint = "candidates_name_key_key"

// PostgresCandidateRepository is the PostgreSQL CandidateRepository
type PostgresCandidateRepository struct {
	db *sqlx.DB
}

func NewPostgresCandidateRepository(db *sqlx.DB) candidate.CandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// FindByID loads one candidate
func (r *PostgresCandidateRepository) FindByID(ctx context.Context, id kernel.CandidateID) (*candidate.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`

	var c candidate.Candidate
	if err := dbx.Executor(ctx, r.db).GetContext(ctx, &c, query, id.String()); err != nil {
		if dbx.IsNoRows(err) {
			return nil, candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
		}
		return nil, dbx.WrapErr(err, "failed to find candidate by id").
			WithDetail("candidate_id", id.String())
	}
	return &c, nil
}

// ExistsByNameKey is the dedup pre-check; the unique constraint is authoritative
func (r *PostgresCandidateRepository) ExistsByNameKey(ctx context.Context, nameKey string) (bool, error) {
	var exists bool
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM candidates WHERE name_key = $1)`, nameKey)
	if err != nil {
		return false, dbx.WrapErr(err, "failed to check candidate existence").
			WithDetail("name_key", nameKey)
	}
	return exists, nil
}

// Create inserts a new candidate
func (r *PostgresCandidateRepository) Create(ctx context.Context, c candidate.Candidate) error {
	query := `
		INSERT INTO candidates (` + candidateColumns + `
		) VALUES (
			:id, :candidate_name, :name_key, :role, :experience_level, :source, :vendor_partner,
			:location, :email, :contact_number, :expected_ctc, :next_steps, :interview_feedback,
			:notice_period, :status, :status_flag, :drop_reason, :workflow_stage_id, :client_id,
			:profile_received_date, :position_start_date, :linked_talent_id, :data_source,
			:source_row_id, :original_status, :import_conflicts, :imported_at, :status_changed_at,
			:created_at, :updated_at
		)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, c); err != nil {
		if dbx.IsUniqueViolation(err, nameKeyConstraint) {
			return candidate.ErrCandidateAlreadyExists().WithDetail("name", c.Name)
		}
		return dbx.WrapErr(err, "failed to create candidate").
			WithDetail("candidate_id", c.ID.String()).
			WithDetail("name", c.Name)
	}
	return nil
}

// List returns candidates filtered by status and client, newest first
func (r *PostgresCandidateRepository) List(ctx context.Context, filter candidate.ListFilter) ([]*candidate.Candidate, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, filter.ClientID.String())
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit, max(filter.Offset, 0))
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var rows []candidate.Candidate
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbx.WrapErr(err, "failed to list candidates")
	}
	return toPointers(rows), nil
}

// UpdateStatus writes the status fields and the client reference only
func (r *PostgresCandidateRepository) UpdateStatus(ctx context.Context, c candidate.Candidate) error {
	query := `
		UPDATE candidates SET
			status = :status,
			status_flag = :status_flag,
			drop_reason = :drop_reason,
			workflow_stage_id = :workflow_stage_id,
			client_id = :client_id,
			status_changed_at = :status_changed_at,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, c)
	if err != nil {
		return dbx.WrapErr(err, "failed to update candidate status").
			WithDetail("candidate_id", c.ID.String())
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return candidate.ErrCandidateNotFound().WithDetail("candidate_id", c.ID.String())
	}
	return nil
}

// LinkTalent records the talent created for a hired candidate
func (r *PostgresCandidateRepository) LinkTalent(ctx context.Context, id kernel.CandidateID, talentID kernel.TalentID, at time.Time) error {
	result, err := dbx.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE candidates SET linked_talent_id = $2, updated_at = $3 WHERE id = $1`,
		id.String(), talentID.String(), at)
	if err != nil {
		return dbx.WrapErr(err, "failed to link candidate to talent").
			WithDetail("candidate_id", id.String()).
			WithDetail("talent_id", talentID.String())
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return candidate.ErrCandidateNotFound().WithDetail("candidate_id", id.String())
	}
	return nil
}

// FindUnlinkedByStatus returns candidates in status with a client and no talent yet
func (r *PostgresCandidateRepository) FindUnlinkedByStatus(ctx context.Context, status string, clientID *kernel.ClientID) ([]*candidate.Candidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		WHERE status = $1
		  AND client_id IS NOT NULL
		  AND linked_talent_id IS NULL`
	args := []any{status}
	if clientID != nil {
		query += ` AND client_id = $2`
		args = append(args, clientID.String())
	}
	query += ` ORDER BY created_at DESC, id`

	var rows []candidate.Candidate
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbx.WrapErr(err, "failed to find hired candidates").
			WithDetail("status", status)
	}
	return toPointers(rows), nil
}

// AppendStatusChange writes one history row
func (r *PostgresCandidateRepository) AppendStatusChange(ctx context.Context, change candidate.StatusChange) error {
	query := `
		INSERT INTO candidate_status_changes (candidate_id, old_status, new_status, changed_by, notes, changed_at)
		VALUES (:candidate_id, :old_status, :new_status, :changed_by, :notes, :changed_at)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, change); err != nil {
		return dbx.WrapErr(err, "failed to record status change").
			WithDetail("candidate_id", change.CandidateID.String())
	}
	return nil
}

// StatusHistory returns the status changes of a candidate, newest first
func (r *PostgresCandidateRepository) StatusHistory(ctx context.Context, id kernel.CandidateID) ([]candidate.StatusChange, error) {
	query := `
		SELECT id, candidate_id, old_status, new_status, changed_by, notes, changed_at
		FROM candidate_status_changes
		WHERE candidate_id = $1
		ORDER BY changed_at DESC, id DESC`

	var changes []candidate.StatusChange
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &changes, query, id.String()); err != nil {
		return nil, dbx.WrapErr(err, "failed to load status history").
			WithDetail("candidate_id", id.String())
	}
	return changes, nil
}

func toPointers(rows []candidate.Candidate) []*candidate.Candidate {
	result := make([]*candidate.Candidate, len(rows))
	for i := range rows {
		result[i] = &rows[i]
	}
	return result
}

// ============================================================================
// Client directory
// ============================================================================

// PostgresClientDirectory reads the known-clients table
type PostgresClientDirectory struct {
	db *sqlx.DB
}

func NewPostgresClientDirectory(db *sqlx.DB) candidate.ClientDirectory {
	return &PostgresClientDirectory{db: db}
}

func (r *PostgresClientDirectory) FindByID(ctx context.Context, id kernel.ClientID) (*candidate.Client, error) {
	var c candidate.Client
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &c,
		`SELECT id, name, created_at FROM clients WHERE id = $1`, id.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, candidate.ErrClientNotFound().WithDetail("client_id", id.String())
		}
		return nil, dbx.WrapErr(err, "failed to find client").WithDetail("client_id", id.String())
	}
	return &c, nil
}

func (r *PostgresClientDirectory) FindByNamePartial(ctx context.Context, name string) (*candidate.Client, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(name)) + "%"

	var c candidate.Client
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &c,
		`SELECT id, name, created_at FROM clients WHERE name ILIKE $1 ORDER BY name, id LIMIT 1`, pattern)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, candidate.ErrClientNotFound().WithDetail("name", name)
		}
		return nil, dbx.WrapErr(err, "failed to look up client by name").WithDetail("name", name)
	}
	return &c, nil
}

func (r *PostgresClientDirectory) List(ctx context.Context) ([]candidate.Client, error) {
	var clients []candidate.Client
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &clients,
		`SELECT id, name, created_at FROM clients ORDER BY name`); err != nil {
		return nil, dbx.WrapErr(err, "failed to list clients")
	}
	return clients, nil
}

func (r *PostgresClientDirectory) Save(ctx context.Context, c candidate.Client) error {
	query := `
		INSERT INTO clients (id, name, created_at) VALUES (:id, :name, :created_at)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, c); err != nil {
		if dbx.IsUniqueViolation(err, "clients_name_key") {
			return candidate.ErrClientAlreadyExists().WithDetail("client_name", c.Name)
		}
		return dbx.WrapErr(err, "failed to save client").WithDetail("client_id", c.ID.String())
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
