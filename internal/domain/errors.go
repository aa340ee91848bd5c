package domain

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates rule and precondition failures so collaborators can
// map them to caller-visible outcomes without parsing messages.
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindPrecondition      ErrorKind = "precondition_violation"
	KindNotFound          ErrorKind = "not_found"
	KindRuleViolation     ErrorKind = "rule_violation"
	KindInsufficientCards ErrorKind = "insufficient_cards"
)

type GameError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *GameError) Unwrap() error {
	return e.Err
}

func Errorf(kind ErrorKind, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	return &GameError{Kind: kind, Msg: err.Error(), Err: errors.Unwrap(err)}
}

// KindOf returns the error kind, or "" for errors that are not game errors
// (persistence faults stay unclassified and surface unchanged).
func KindOf(err error) ErrorKind {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
