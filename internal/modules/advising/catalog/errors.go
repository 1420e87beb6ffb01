package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/yungbote/coursebridge-backend/internal/pkg/errors"
)

// StoreError carries the failing operation and a coarse reason. It matches
// apperrors.ErrStoreUnavailable under errors.Is.
type StoreError struct {
	Op     string
	Reason string
	Code   string
	Err    error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("course store %s failed (%s)", e.Op, e.Reason)
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == apperrors.ErrStoreUnavailable }

const (
	ReasonConnect  = "connect"
	ReasonQuery    = "query"
	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
	ReasonUnknown  = "unknown"
)

func classifyStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	out := &StoreError{Op: op, Reason: ReasonUnknown, Err: err}

	var connectErr *pgconn.ConnectError
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Reason = ReasonTimeout
	case errors.Is(err, context.Canceled):
		out.Reason = ReasonCanceled
	case errors.As(err, &connectErr):
		out.Reason = ReasonConnect
	case errors.As(err, &pgErr):
		out.Reason = ReasonQuery
		out.Code = pgErr.Code
	case pgconn.SafeToRetry(err):
		out.Reason = ReasonConnect
	}
	return out
}
