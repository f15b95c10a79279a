package lockx

import (
	"context"
	"net/http"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/errx"
)

// Locker hands out named, expiring run locks so a job runs at most once at a
// time across server replicas and CLI invocations
type Locker interface {
	// TryLock returns ok=false without error when somebody else holds the lock
	TryLock(ctx context.Context, name string, ttl time.Duration) (Lock, bool, error)
}

// Lock is a held lock; Release is safe to call more than once
type Lock interface {
	Release(ctx context.Context) error
}

var ErrRegistry = errx.NewRegistry("LOCK")

var CodeLockHeld = ErrRegistry.Register("HELD", errx.TypeConflict, http.StatusConflict, "Another run is already in progress")

func ErrLockHeld() *errx.Error {
	return ErrRegistry.New(CodeLockHeld)
}

// NoopLocker always grants the lock
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (Lock, bool, error) {
	return noopLock{}, true, nil
}

type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }
