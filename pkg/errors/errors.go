package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the categories callers branch on.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "ValidationError"
	KindState       Kind = "StateError"
	KindCapacity    Kind = "CapacityError"
	KindEligibility Kind = "EligibilityError"
	KindPayment     Kind = "PaymentError"
	KindAccess      Kind = "AccessError"
	KindNotFound    Kind = "NotFoundError"
	KindInternal    Kind = "InternalError"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, kind Kind, status int, message string) *Error {
	return &Error{Code: code, Kind: kind, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Kind: kindForCode(code), Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", KindNotFound, http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", KindAccess, http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", KindAccess, http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", KindState, http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", KindValidation, http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", KindInternal, http.StatusInternalServerError, "internal server error")

	ErrInvalidGrade      = New("INVALID_GRADE", KindValidation, http.StatusBadRequest, "grade must be within [0,100] with at most 2 decimals")
	ErrInvalidAttendance = New("INVALID_ATTENDANCE", KindValidation, http.StatusBadRequest, "attendance counters must be >= 0")
	ErrMissingLevelGrade = New("MISSING_LEVEL_GRADE", KindValidation, http.StatusBadRequest, "missing grade for skipped level")
	ErrInvalidLevel      = New("INVALID_LEVEL", KindValidation, http.StatusBadRequest, "english level must be within [1,6]")
	ErrInvalidResult     = New("INVALID_RESULT", KindValidation, http.StatusBadRequest, "exam result must be within [0,100]")

	ErrInvalidTransition = New("INVALID_TRANSITION", KindState, http.StatusConflict, "status transition not allowed")
	ErrImmutableState    = New("IMMUTABLE_STATE", KindState, http.StatusConflict, "record is in a terminal state")
	ErrPaymentPending    = New("PAYMENT_PENDING", KindState, http.StatusConflict, "payment has not been approved")

	ErrGroupFull        = New("GROUP_FULL", KindCapacity, http.StatusConflict, "group has no seats available")
	ErrGroupUnavailable = New("GROUP_UNAVAILABLE", KindCapacity, http.StatusConflict, "group does not accept enrollments")

	ErrStudentNotEligible = New("STUDENT_NOT_ELIGIBLE", KindEligibility, http.StatusUnprocessableEntity, "student is not active")
	ErrLevelNotAllowed    = New("LEVEL_NOT_ALLOWED", KindEligibility, http.StatusUnprocessableEntity, "student is not positioned for this english level")

	ErrInvalidAmount = New("INVALID_AMOUNT", KindPayment, http.StatusBadRequest, "payment amount must be greater than zero")
	ErrMissingReason = New("MISSING_REASON", KindPayment, http.StatusBadRequest, "rejection reason is required")
	ErrPaymentState  = New("PAYMENT_STATE", KindPayment, http.StatusConflict, "payment is not awaiting a decision")

	ErrCacheMiss = New("CACHE_MISS", KindInternal, http.StatusNotFound, "cache miss")
)

var sentinels = []*Error{
	ErrNotFound, ErrForbidden, ErrUnauthorized, ErrConflict, ErrValidation, ErrInternal,
	ErrInvalidGrade, ErrInvalidAttendance, ErrMissingLevelGrade, ErrInvalidLevel, ErrInvalidResult,
	ErrInvalidTransition, ErrImmutableState, ErrPaymentPending,
	ErrGroupFull, ErrGroupUnavailable,
	ErrStudentNotEligible, ErrLevelNotAllowed,
	ErrInvalidAmount, ErrMissingReason, ErrPaymentState,
	ErrCacheMiss,
}

func kindForCode(code string) Kind {
	for _, s := range sentinels {
		if s.Code == code {
			return s.Kind
		}
	}
	return KindInternal
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Clonef is Clone with a formatted message.
func Clonef(err *Error, format string, args ...interface{}) *Error {
	return Clone(err, fmt.Sprintf(format, args...))
}

// KindOf returns the taxonomy kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
