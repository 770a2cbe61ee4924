package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

// FieldError describes a single violated field of a request contract.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
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

// Is matches errors sharing the same code so cloned variants still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrNotEnrolled      = New("NOT_ENROLLED", http.StatusNotFound, "student is not enrolled in this course")
	ErrAlreadyEnrolled  = New("ALREADY_ENROLLED", http.StatusConflict, "student is already enrolled")
	ErrAlreadyCompleted = New("ALREADY_COMPLETED", http.StatusConflict, "lesson already completed")
	ErrAlreadyReviewed  = New("ALREADY_REVIEWED", http.StatusConflict, "course already reviewed by user")
	ErrInvalidSignature = New("INVALID_SIGNATURE", http.StatusUnauthorized, "invalid payment signature")
	ErrUpstream         = New("UPSTREAM_UNAVAILABLE", http.StatusBadGateway, "upstream service unavailable")
	ErrIntegrity        = New("INTEGRITY_ERROR", http.StatusInternalServerError, "data integrity violation")
)

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

// FromValidation converts validator output into a single validation error listing
// every violated field. Non-validator errors are wrapped unchanged.
func FromValidation(err error, message string) *Error {
	if message == "" {
		message = ErrValidation.Message
	}
	out := Wrap(err, ErrValidation.Code, ErrValidation.Status, message)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	out.Details = make([]FieldError, 0, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out.Details = append(out.Details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		fields = append(fields, fe.Field())
	}
	out.Message = fmt.Sprintf("%s: %s", message, strings.Join(fields, ", "))
	return out
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
