package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidAge
	KindInvalidRange
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidAge:
		return "invalid_age"
	case KindInvalidRange:
		return "invalid_range"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

const (
	invalidAgeMessage   = "Invalid user age"
	invalidRangeMessage = "Argument fromDate should be less then toDate"
)

// Error is the tagged error returned by the user services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound formats as "<Kind> not found with <Field> : '<value>'".
func NotFound(kind, field string, value any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found with %s : '%v'", kind, field, value),
	}
}

func UserNotFound(id int64) *Error {
	return NotFound("User", "Id", id)
}

func InvalidAge() *Error {
	return &Error{Kind: KindInvalidAge, Message: invalidAgeMessage}
}

func InvalidRange() *Error {
	return &Error{Kind: KindInvalidRange, Message: invalidRangeMessage}
}

// Storage tags a persistence failure. The original error stays reachable
// through errors.Is / errors.As.
func Storage(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: KindStorage, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
