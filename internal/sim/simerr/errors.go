package simerr

import (
	"errors"
	"fmt"
)

const (
	CodePathNotFound          = "E_PATH_NOT_FOUND"
	CodeReservationConflict   = "E_RESERVATION_CONFLICT"
	CodeStorageFull           = "E_STORAGE_FULL"
	CodeStorageUnreachable    = "E_STORAGE_UNREACHABLE"
	CodeTargetInvalidated     = "E_TARGET_INVALIDATED"
	CodeInsufficientResources = "E_INSUFFICIENT_RESOURCES"
	CodeNoTarget              = "E_NO_TARGET"
	CodeNoBed                 = "E_NO_BED"
)

// Error is a recoverable simulation failure carrying a stable code.
// None of these are fatal; callers fall back to IDLE or pick another target.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Code + ": " + e.Msg }

// Is matches on code so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	var o *Error
	if !errors.As(target, &o) {
		return false
	}
	return o.Code == e.Code
}

var (
	ErrPathNotFound          = &Error{Code: CodePathNotFound, Msg: "no walkable route"}
	ErrReservationConflict   = &Error{Code: CodeReservationConflict, Msg: "target already reserved"}
	ErrStorageFull           = &Error{Code: CodeStorageFull, Msg: "storage full"}
	ErrStorageUnreachable    = &Error{Code: CodeStorageUnreachable, Msg: "storage unreachable"}
	ErrTargetInvalidated     = &Error{Code: CodeTargetInvalidated, Msg: "target removed or depleted"}
	ErrInsufficientResources = &Error{Code: CodeInsufficientResources, Msg: "missing materials"}
	ErrNoTarget              = &Error{Code: CodeNoTarget, Msg: "no eligible target"}
	ErrNoBed                 = &Error{Code: CodeNoBed, Msg: "no bed assigned"}
)

// Wrap attaches context to one of the sentinels.
func Wrap(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var knownCodes = map[string]struct{}{
	CodePathNotFound:          {},
	CodeReservationConflict:   {},
	CodeStorageFull:           {},
	CodeStorageUnreachable:    {},
	CodeTargetInvalidated:     {},
	CodeInsufficientResources: {},
	CodeNoTarget:              {},
	CodeNoBed:                 {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
