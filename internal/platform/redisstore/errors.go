package redisstore

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/redis/go-redis/v9"
)

// Error implements repositories.RepositoryError for Redis backed repositories.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op != "" {
		return fmt.Sprintf("%s: %v", e.op, e.err)
	}
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsNotFound reports whether the error represents a missing key.
func (e *Error) IsNotFound() bool {
	return e != nil && e.notFound
}

// IsConflict reports whether the error represents a conflicting update.
func (e *Error) IsConflict() bool {
	return e != nil && e.conflict
}

// IsUnavailable reports whether the error represents a transient backend outage.
func (e *Error) IsUnavailable() bool {
	return e != nil && e.unavailable
}

// NotFoundError builds a not-found repository error for the given operation.
func NotFoundError(op string) *Error {
	return &Error{op: op, err: redis.Nil, notFound: true}
}

// CorruptError builds a not-found repository error for undecodable stored data,
// letting callers fail open instead of treating it as an outage.
func CorruptError(op string, err error) *Error {
	return &Error{op: op, err: err, notFound: true}
}

// ConflictError builds a conflict repository error for the given operation.
func ConflictError(op string, err error) *Error {
	if err == nil {
		err = errors.New("conflicting update")
	}
	return &Error{op: op, err: err, conflict: true}
}

// WrapError annotates Redis errors with repository semantics. Context cancellations are passed through.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var repoErr *Error
	if errors.As(err, &repoErr) {
		if op != "" && repoErr.op == "" {
			repoErr.op = op
		}
		return repoErr
	}

	e := &Error{op: op, err: err}
	var netErr net.Error
	switch {
	case errors.Is(err, redis.Nil):
		e.notFound = true
	case errors.Is(err, redis.TxFailedErr):
		e.conflict = true
	case errors.As(err, &netErr):
		e.unavailable = true
	default:
		e.unavailable = true
	}
	return e
}
