package errors

import (
	"errors"
	"net/http"
)

// Standard error types
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrMalformedDocument = errors.New("malformed document")
	ErrUnavailable       = errors.New("store unavailable")
	ErrTransientQuery    = errors.New("transient query failure")
	ErrMissingIdentity   = errors.New("order has no storage identity")
	ErrMissingTrackingID = errors.New("order has no tracking id")
	ErrPropagation       = errors.New("tracking propagation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInternal          = errors.New("internal error")
)

// Kind classifies a failure so callers can choose retry or surface policy
type Kind string

const (
	KindUnknown           Kind = ""
	KindNotFound          Kind = "not_found"
	KindInvalidInput      Kind = "invalid_input"
	KindPermissionDenied  Kind = "permission_denied"
	KindMalformedDocument Kind = "malformed_document"
	KindUnavailable       Kind = "unavailable"
	KindTransientQuery    Kind = "transient_query"
	KindMissingIdentity   Kind = "missing_identity"
	KindMissingTrackingID Kind = "missing_tracking_id"
	KindPropagation       Kind = "propagation"
	KindInvalidTransition Kind = "invalid_transition"
	KindInternal          Kind = "internal"
)

var sentinelKinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrMalformedDocument, KindMalformedDocument},
	{ErrUnavailable, KindUnavailable},
	{ErrTransientQuery, KindTransientQuery},
	{ErrMissingIdentity, KindMissingIdentity},
	{ErrMissingTrackingID, KindMissingTrackingID},
	{ErrPropagation, KindPropagation},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrInternal, KindInternal},
}

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	Kind       Kind
	StatusCode int
	Message    string
	Retryable  bool
	Context    map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, kind Kind, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Context:    make(map[string]interface{}),
	}
}

// KindOf returns the failure kind of err, looking through wrapped errors.
// The outermost AppError with a kind wins; bare sentinels are recognised too.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindUnknown {
		return appErr.Kind
	}

	for _, s := range sentinelKinds {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}

	return KindUnknown
}

// StatusCode returns the HTTP status to report for err
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindMissingIdentity, KindInvalidTransition:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindUnavailable, KindTransientQuery:
		return http.StatusServiceUnavailable
	case KindPropagation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTransientQuery)
}

// Is reports whether err has the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, KindNotFound, message, http.StatusNotFound, false)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, KindInvalidInput, message, http.StatusBadRequest, false)
}

// NewPermissionDeniedError creates a permission denied error
func NewPermissionDeniedError(message string) *AppError {
	return NewAppError(ErrPermissionDenied, KindPermissionDenied, message, http.StatusForbidden, false)
}

// NewMalformedDocumentError creates an error for a document missing required fields
func NewMalformedDocumentError(message string) *AppError {
	return NewAppError(ErrMalformedDocument, KindMalformedDocument, message, http.StatusInternalServerError, false)
}

// NewUnavailableError creates an error for an unreachable store
func NewUnavailableError(message string) *AppError {
	return NewAppError(ErrUnavailable, KindUnavailable, message, http.StatusServiceUnavailable, true)
}

// NewTransientQueryError wraps a failed poll query
func NewTransientQueryError(cause error) *AppError {
	return Wrap(cause, KindTransientQuery, "transient query failure")
}

// NewMissingIdentityError creates an error for an order that has no storage id
func NewMissingIdentityError(message string) *AppError {
	return NewAppError(ErrMissingIdentity, KindMissingIdentity, message, http.StatusBadRequest, false)
}

// NewMissingTrackingIDError creates an error for an order without tracking id
func NewMissingTrackingIDError(message string) *AppError {
	return NewAppError(ErrMissingTrackingID, KindMissingTrackingID, message, http.StatusOK, false)
}

// NewPropagationError wraps a tracking write failure that followed a successful order write
func NewPropagationError(cause error) *AppError {
	return Wrap(cause, KindPropagation, "tracking propagation failed")
}

// NewInvalidTransitionError creates an invalid status transition error
func NewInvalidTransitionError(message string) *AppError {
	return NewAppError(ErrInvalidTransition, KindInvalidTransition, message, http.StatusBadRequest, false)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, KindInternal, message, http.StatusInternalServerError, true)
}

// Wrap classifies cause under kind. The result matches both the kind's
// sentinel and cause with errors.Is.
func Wrap(cause error, kind Kind, message string) *AppError {
	sentinel := ErrInternal
	for _, s := range sentinelKinds {
		if s.kind == kind {
			sentinel = s.err
			break
		}
	}

	if cause != nil {
		message = message + ": " + cause.Error()
	}

	appErr := NewAppError(joinCause(sentinel, cause), kind, message, 0, kind == KindUnavailable || kind == KindTransientQuery)
	appErr.StatusCode = StatusCode(appErr)
	return appErr
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}
