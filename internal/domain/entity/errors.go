package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a ledger call matches exactly one of
// these with errors.Is.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrDuplicateVote     = errors.New("duplicate vote")
	ErrIndexMismatch     = errors.New("index mismatch")
	ErrPaused            = errors.New("paused")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Error carries the kind of a failed operation together with its context.
type Error struct {
	Kind error
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the error kind of err, or nil if err carries none.
func KindOf(err error) error {
	for _, k := range []error{
		ErrUnauthorized, ErrAlreadyExists, ErrNotFound, ErrInvalidState,
		ErrInsufficientFunds, ErrLimitExceeded, ErrDuplicateVote,
		ErrIndexMismatch, ErrPaused, ErrInvalidArgument,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
