package assignmentinfra

import (
	"context"
	"strings"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/jmoiron/sqlx"
)

const assignmentColumns = `
	id, client_id, talent_id, percentage, duration_months, start_date, end_date,
	status, notes, created_at, updated_at`

// PostgresAssignmentRepository is the PostgreSQL AssignmentRepository
type PostgresAssignmentRepository struct {
	db *sqlx.DB
}

func NewPostgresAssignmentRepository(db *sqlx.DB) assignment.AssignmentRepository {
	return &PostgresAssignmentRepository{db: db}
}

func (r *PostgresAssignmentRepository) FindByID(ctx context.Context, id kernel.AssignmentID) (*assignment.Assignment, error) {
	var a assignment.Assignment
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &a,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, assignment.ErrAssignmentNotFound().WithDetail("assignment_id", id.String())
		}
		return nil, dbx.WrapErr(err, "failed to find assignment").WithDetail("assignment_id", id.String())
	}
	return &a, nil
}

func (r *PostgresAssignmentRepository) FindByClientTalent(ctx context.Context, clientID kernel.ClientID, talentID kernel.TalentID) (*assignment.Assignment, error) {
	var a assignment.Assignment
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &a,
		`SELECT `+assignmentColumns+` FROM assignments WHERE client_id = $1 AND talent_id = $2`,
		clientID.String(), talentID.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, assignment.ErrAssignmentNotFound().
				WithDetail("client_id", clientID.String()).
				WithDetail("talent_id", talentID.String())
		}
		return nil, dbx.WrapErr(err, "failed to find assignment by client and talent")
	}
	return &a, nil
}

func (r *PostgresAssignmentRepository) ListByTalent(ctx context.Context, talentID kernel.TalentID) ([]assignment.Assignment, error) {
	var items []assignment.Assignment
	err := dbx.Executor(ctx, r.db).SelectContext(ctx, &items,
		`SELECT `+assignmentColumns+` FROM assignments WHERE talent_id = $1 ORDER BY start_date DESC, id`,
		talentID.String())
	if err != nil {
		return nil, dbx.WrapErr(err, "failed to list assignments").WithDetail("talent_id", talentID.String())
	}
	return items, nil
}

func (r *PostgresAssignmentRepository) Create(ctx context.Context, a assignment.Assignment) error {
	query := `
		INSERT INTO assignments (` + assignmentColumns + `
		) VALUES (
			:id, :client_id, :talent_id, :percentage, :duration_months, :start_date, :end_date,
			:status, :notes, :created_at, :updated_at
		)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, a); err != nil {
		if dbx.IsUniqueViolation(err, "assignments_client_talent_key") {
			return assignment.ErrAssignmentAlreadyExists().
				WithDetail("client_id", a.ClientID.String()).
				WithDetail("talent_id", a.TalentID.String())
		}
		return dbx.WrapErr(err, "failed to create assignment").WithDetail("assignment_id", a.ID.String())
	}
	return nil
}

func (r *PostgresAssignmentRepository) Update(ctx context.Context, a assignment.Assignment) error {
	query := `
		UPDATE assignments SET
			client_id = :client_id,
			talent_id = :talent_id,
			percentage = :percentage,
			duration_months = :duration_months,
			start_date = :start_date,
			end_date = :end_date,
			status = :status,
			notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, a)
	if err != nil {
		if dbx.IsUniqueViolation(err, "assignments_client_talent_key") {
			return assignment.ErrAssignmentAlreadyExists().WithDetail("assignment_id", a.ID.String())
		}
		return dbx.WrapErr(err, "failed to update assignment").WithDetail("assignment_id", a.ID.String())
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return assignment.ErrAssignmentNotFound().WithDetail("assignment_id", a.ID.String())
	}
	return nil
}

func (r *PostgresAssignmentRepository) Delete(ctx context.Context, id kernel.AssignmentID) error {
	result, err := dbx.Executor(ctx, r.db).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id.String())
	if err != nil {
		return dbx.WrapErr(err, "failed to delete assignment").WithDetail("assignment_id", id.String())
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return assignment.ErrAssignmentNotFound().WithDetail("assignment_id", id.String())
	}
	return nil
}

// ============================================================================
// Talent supply
// ============================================================================

const talentColumns = `
	id, name, role, grade, doj, assignment_status, type, employment_status, email,
	years_of_exp, skills, region, partner, total_assignment_percentage,
	availability_percentage, source_candidate_id, created_at, updated_at`

// PostgresTalentRepository is the PostgreSQL TalentRepository
type PostgresTalentRepository struct {
	db *sqlx.DB
}

func NewPostgresTalentRepository(db *sqlx.DB) assignment.TalentRepository {
	return &PostgresTalentRepository{db: db}
}

func (r *PostgresTalentRepository) FindByID(ctx context.Context, id kernel.TalentID) (*assignment.TalentSupply, error) {
	var t assignment.TalentSupply
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &t,
		`SELECT `+talentColumns+` FROM talent_supply WHERE id = $1`, id.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, assignment.ErrTalentNotFound().WithDetail("talent_id", id.String())
		}
		return nil, dbx.WrapErr(err, "failed to find talent").WithDetail("talent_id", id.String())
	}
	return &t, nil
}

func (r *PostgresTalentRepository) FindBySourceCandidate(ctx context.Context, candidateID kernel.CandidateID) (*assignment.TalentSupply, error) {
	var t assignment.TalentSupply
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &t,
		`SELECT `+talentColumns+` FROM talent_supply WHERE source_candidate_id = $1`, candidateID.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, assignment.ErrTalentNotFound().WithDetail("candidate_id", candidateID.String())
		}
		return nil, dbx.WrapErr(err, "failed to find talent by candidate").WithDetail("candidate_id", candidateID.String())
	}
	return &t, nil
}

func (r *PostgresTalentRepository) Create(ctx context.Context, t assignment.TalentSupply) error {
	query := `
		INSERT INTO talent_supply (` + talentColumns + `
		) VALUES (
			:id, :name, :role, :grade, :doj, :assignment_status, :type, :employment_status, :email,
			:years_of_exp, :skills, :region, :partner, :total_assignment_percentage,
			:availability_percentage, :source_candidate_id, :created_at, :updated_at
		)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, t); err != nil {
		if dbx.IsUniqueViolation(err, "talent_supply_source_candidate_id_key") {
			return assignment.ErrTalentAlreadyExists().WithDetail("talent_name", t.Name)
		}
		return dbx.WrapErr(err, "failed to create talent").WithDetail("talent_id", t.ID.String())
	}
	return nil
}

func (r *PostgresTalentRepository) Lock(ctx context.Context, id kernel.TalentID) error {
	var locked string
	err := dbx.Executor(ctx, r.db).GetContext(ctx, &locked,
		`SELECT id FROM talent_supply WHERE id = $1 FOR UPDATE`, id.String())
	if err != nil {
		if dbx.IsNoRows(err) {
			return assignment.ErrTalentNotFound().WithDetail("talent_id", id.String())
		}
		return dbx.WrapErr(err, "failed to lock talent").WithDetail("talent_id", id.String())
	}
	return nil
}

// Recompute aggregates and writes in one UPDATE; the row lock it takes
// serializes concurrent recomputes for the same talent only
func (r *PostgresTalentRepository) Recompute(ctx context.Context, id kernel.TalentID, activeStatus string) (*assignment.TalentSupply, error) {
	query := `
		UPDATE talent_supply t SET
			total_assignment_percentage = s.total,
			availability_percentage = GREATEST(0, 100 - s.total),
			updated_at = now()
		FROM (
			SELECT COALESCE(SUM(percentage), 0) AS total
			FROM assignments
			WHERE talent_id = $1 AND status = $2
		) s
		WHERE t.id = $1
		RETURNING ` + prefixed("t", talentColumns)

	var t assignment.TalentSupply
	if err := dbx.Executor(ctx, r.db).QueryRowxContext(ctx, query, id.String(), activeStatus).StructScan(&t); err != nil {
		if dbx.IsNoRows(err) {
			return nil, assignment.ErrTalentNotFound().WithDetail("talent_id", id.String())
		}
		return nil, dbx.WrapErr(err, "failed to recompute talent totals").WithDetail("talent_id", id.String())
	}
	return &t, nil
}

// RecomputeAll rewrites every talent's totals from the ledger
func (r *PostgresTalentRepository) RecomputeAll(ctx context.Context, activeStatus string) (int64, error) {
	query := `
		UPDATE talent_supply t SET
			total_assignment_percentage = COALESCE(s.total, 0),
			availability_percentage = GREATEST(0, 100 - COALESCE(s.total, 0)),
			updated_at = now()
		FROM talent_supply t2
		LEFT JOIN (
			SELECT talent_id, SUM(percentage) AS total
			FROM assignments
			WHERE status = $1
			GROUP BY talent_id
		) s ON s.talent_id = t2.id
		WHERE t.id = t2.id`

	result, err := dbx.Executor(ctx, r.db).ExecContext(ctx, query, activeStatus)
	if err != nil {
		return 0, dbx.WrapErr(err, "failed to recompute all talent totals")
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// Totals returns cached and actual totals for every talent
func (r *PostgresTalentRepository) Totals(ctx context.Context, activeStatus string) ([]assignment.TalentTotals, error) {
	query := `
		SELECT
			t.id AS talent_id,
			t.name,
			t.total_assignment_percentage AS cached,
			COALESCE(SUM(a.percentage) FILTER (WHERE a.status = $1), 0) AS actual
		FROM talent_supply t
		LEFT JOIN assignments a ON a.talent_id = t.id
		GROUP BY t.id, t.name, t.total_assignment_percentage
		ORDER BY t.id`

	var totals []assignment.TalentTotals
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &totals, query, activeStatus); err != nil {
		return nil, dbx.WrapErr(err, "failed to load talent totals")
	}
	return totals, nil
}

// ============================================================================
// Integrity log
// ============================================================================

type PostgresIntegrityLog struct {
	db *sqlx.DB
}

func NewPostgresIntegrityLog(db *sqlx.DB) assignment.IntegrityLogRepository {
	return &PostgresIntegrityLog{db: db}
}

func (r *PostgresIntegrityLog) Append(ctx context.Context, entries []assignment.IntegrityLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	query := `
		INSERT INTO data_integrity_log (check_type, table_name, record_id, issue, cached_value, actual_value, auto_fixed, logged_at)
		VALUES (:check_type, :table_name, :record_id, :issue, :cached_value, :actual_value, :auto_fixed, :logged_at)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, entries); err != nil {
		return dbx.WrapErr(err, "failed to write integrity log").WithDetail("entries", len(entries))
	}
	return nil
}

func (r *PostgresIntegrityLog) Recent(ctx context.Context, limit int) ([]assignment.IntegrityLogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var entries []assignment.IntegrityLogEntry
	err := dbx.Executor(ctx, r.db).SelectContext(ctx, &entries, `
		SELECT id, check_type, table_name, record_id, issue, cached_value, actual_value, auto_fixed, logged_at
		FROM data_integrity_log
		ORDER BY logged_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, dbx.WrapErr(err, "failed to read integrity log")
	}
	return entries, nil
}

// prefixed qualifies a column list with a table alias
func prefixed(alias, columns string) string {
	parts := strings.Fields(strings.ReplaceAll(columns, ",", " "))
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}
