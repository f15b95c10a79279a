// Package dbxtest opens the integration database for repository tests
package dbxtest

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/Abraxas-365/talentledger/db/migrations"
	"github.com/Abraxas-365/talentledger/pkg/dbx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	migrateOnce sync.Once
	migrateErr  error
)

// DB connects to TEST_POSTGRES_DSN and applies migrations once per process.
// The test is skipped when the variable is unset.
func DB(tb testing.TB) *sqlx.DB {
	tb.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		tb.Fatalf("connect: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	migrateOnce.Do(func() {
		_, migrateErr = dbx.Migrate(context.Background(), db, migrations.Files)
	})
	if migrateErr != nil {
		tb.Fatalf("migrate: %v", migrateErr)
	}
	return db
}

// Tx opens a transaction that is rolled back when the test ends and returns
// a context bound to it
func Tx(tb testing.TB, db *sqlx.DB) context.Context {
	tb.Helper()

	tx, err := db.Beginx()
	if err != nil {
		tb.Fatalf("begin: %v", err)
	}
	tb.Cleanup(func() { _ = tx.Rollback() })
	return dbx.BindTx(context.Background(), tx)
}
