package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// WrapErr wraps a store error, classifying connection-level failures as
// errx.TypeUnavailable so batch callers can tell them from row failures.
func WrapErr(err error, message string) *errx.Error {
	if IsConnectionError(err) {
		return errx.Wrap(err, message, errx.TypeUnavailable)
	}
	return errx.Wrap(err, message, errx.TypeInternal)
}

// IsConnectionError reports whether err means the store is unreachable
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "57":
			// connection_exception, operator_intervention (admin shutdown, cancel)
			return pqErr.Code != "57014"
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// IsUniqueViolation reports a 23505 on the given constraint (any constraint when empty)
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsNoRows reports sql.ErrNoRows
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsCanceled reports context cancellation or deadline
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsFatal reports failures that should stop a batch: the store is
// unreachable or the caller gave up
func IsFatal(err error) bool {
	return errx.IsType(err, errx.TypeUnavailable) || IsCanceled(err)
}
