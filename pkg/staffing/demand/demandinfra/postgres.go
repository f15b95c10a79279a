package demandinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const ledgerColumns = `
	id, client_id, account_name, account_track, owner, source, industry, region, lob,
	offering, financial_year, year, month, month_number, partner_org, status, duration,
	metric_type, value, created_at, updated_at`

type PostgresLedgerRepository struct {
	db *sqlx.DB
}

func NewPostgresLedgerRepository(db *sqlx.DB) demand.LedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

func (r *PostgresLedgerRepository) FindOpenDemand(ctx context.Context, clientID kernel.ClientID, booked, billed string) ([]demand.OpenDemand, error) {
	query := `
		SELECT
			client_id,
			MAX(account_name) AS account_name,
			offering,
			owner,
			COALESCE(SUM(value) FILTER (WHERE metric_type = $2), 0) AS total_booked,
			COALESCE(SUM(value) FILTER (WHERE metric_type = $3), 0) AS total_billed,
			COALESCE(SUM(value) FILTER (WHERE metric_type = $2), 0)
				- COALESCE(SUM(value) FILTER (WHERE metric_type = $3), 0) AS available_positions
		FROM demand_ledger
		WHERE client_id = $1
		GROUP BY client_id, offering, owner
		HAVING COALESCE(SUM(value) FILTER (WHERE metric_type = $2), 0)
			- COALESCE(SUM(value) FILTER (WHERE metric_type = $3), 0) > 0
		ORDER BY available_positions DESC, offering, owner`

	var out []demand.OpenDemand
	if err := dbx.Executor(ctx, r.db).SelectContext(ctx, &out, query, clientID.String(), booked, billed); err != nil {
		return nil, dbx.WrapErr(err, "failed to find open demand").WithDetail("client_id", clientID.String())
	}
	return out, nil
}

func (r *PostgresLedgerRepository) Latest(ctx context.Context, clientID kernel.ClientID, metric string, positiveOnly bool) (*demand.LedgerRow, error) {
	query := `SELECT ` + ledgerColumns + ` FROM demand_ledger WHERE client_id = $1 AND metric_type = $2`
	if positiveOnly {
		query += ` AND value > 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`

	var row demand.LedgerRow
	if err := dbx.Executor(ctx, r.db).GetContext(ctx, &row, query, clientID.String(), metric); err != nil {
		if dbx.IsNoRows(err) {
			return nil, demand.ErrLedgerRowNotFound().
				WithDetail("client_id", clientID.String()).
				WithDetail("metric_type", metric)
		}
		return nil, dbx.WrapErr(err, "failed to read ledger").WithDetail("client_id", clientID.String())
	}
	return &row, nil
}

func (r *PostgresLedgerRepository) UpdateValue(ctx context.Context, id kernel.LedgerRowID, value decimal.Decimal, at time.Time) error {
	result, err := dbx.Executor(ctx, r.db).ExecContext(ctx,
		`UPDATE demand_ledger SET value = $2, updated_at = $3 WHERE id = $1`,
		id.String(), value, at)
	if err != nil {
		return dbx.WrapErr(err, "failed to update ledger row").WithDetail("ledger_row_id", id.String())
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return demand.ErrLedgerRowNotFound().WithDetail("ledger_row_id", id.String())
	}
	return nil
}

func (r *PostgresLedgerRepository) Insert(ctx context.Context, row demand.LedgerRow) error {
	query := `
		INSERT INTO demand_ledger (` + ledgerColumns + `
		) VALUES (
			:id, :client_id, :account_name, :account_track, :owner, :source, :industry, :region, :lob,
			:offering, :financial_year, :year, :month, :month_number, :partner_org, :status, :duration,
			:metric_type, :value, :created_at, :updated_at
		)`

	if _, err := dbx.Executor(ctx, r.db).NamedExecContext(ctx, query, row); err != nil {
		return dbx.WrapErr(err, "failed to insert ledger row").WithDetail("client_id", row.ClientID.String())
	}
	return nil
}
