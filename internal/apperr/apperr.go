// Package apperr classifies engine failures so that every transport can
// report them distinctly.
package apperr

import "errors"

// Kind is the category of an engine failure.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindConfiguration    Kind = "configuration"
	KindCapacity         Kind = "capacity"
	KindConflict         Kind = "conflict"
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindTransientStorage Kind = "transient_storage"
)

// Error is a classified failure. Sentinels below are *Error values and
// callers add context with fmt.Errorf("...: %w", ErrX).
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrFacilityNotConfigured = newErr(KindConfiguration, "facility not configured")
	ErrTariffNotConfigured   = newErr(KindConfiguration, "tariff not configured")

	ErrNoSpotAvailable = newErr(KindCapacity, "no spot available")
	ErrSpotOutOfRange  = newErr(KindCapacity, "spot out of range")

	ErrAlreadyOccupied      = newErr(KindConflict, "spot already occupied")
	ErrSpotHeld             = newErr(KindConflict, "spot held by a subscriber")
	ErrVehicleAlreadyInside = newErr(KindConflict, "vehicle already inside")
	ErrSessionNotOpen       = newErr(KindConflict, "session not open")

	ErrNegativeAmount  = newErr(KindValidation, "amount must not be negative")
	ErrBelowMinimum    = newErr(KindValidation, "amount below minimum charge")
	ErrNotRounded      = newErr(KindValidation, "amount is not a multiple of the rounding unit")
	ErrInvalidPlate    = newErr(KindValidation, "invalid plate")
	ErrExitBeforeEntry = newErr(KindValidation, "exit time precedes entry time")
	ErrInvalidRequest  = newErr(KindValidation, "invalid request")

	ErrSessionNotFound = newErr(KindNotFound, "session not found")
)

// Transient marks err as a storage failure. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindTransientStorage, Msg: "storage", Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
