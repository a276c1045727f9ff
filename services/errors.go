package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Sentinel kinds. Every error returned by the seating engine matches exactly one
// of them with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrStore        = errors.New("store error")
	ErrNotification = errors.New("notification error")
)

// Error carries the human-readable reason shown to callers.
type Error struct {
	Kind   error
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	}
	return e.Reason
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func validationf(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Reason: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...interface{}) error {
	return &Error{Kind: ErrConflict, Reason: fmt.Sprintf(format, args...)}
}

// storeErr wraps a persistence failure. Engine errors pass through untouched so
// a typed failure raised inside a transaction callback keeps its kind.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: ErrStore, Reason: op, Cause: err}
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsLostRace reports failures an automatic pass may ignore: the row it read a
// moment ago changed before the write.
func IsLostRace(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
