package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors. Callers match them with errors.Is; the
// constructors below wrap them in an AppError carrying the HTTP mapping.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAlreadyExists    = errors.New("resource already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrDuplicateReview  = errors.New("duplicate review")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrScoringUnavail   = errors.New("scoring unavailable")
	ErrScoringContract  = errors.New("scoring contract violation")

	// ErrConcurrentUpdate signals that an optimistic write lost a race. It is
	// retried inside the service layer and never reaches an HTTP client.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %q not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error that is not tied to a single field.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error naming the field that failed.
func Validation(field, message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("%s %s", field, message),
		Field:   field,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// DuplicateReview creates a 409 error for a second review of the same
// seller by the same reviewer.
func DuplicateReview(reviewerName, sellerID string) *AppError {
	return &AppError{
		Code:    "DUPLICATE_REVIEW",
		Message: fmt.Sprintf("%q has already reviewed seller %s", reviewerName, sellerID),
		Status:  http.StatusConflict,
		Err:     ErrDuplicateReview,
	}
}

// StoreUnavailable creates a 503 error for persistence failures. The cause is
// kept for logging and errors.Is but never rendered to clients.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "the review store is unavailable, retry later",
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrStoreUnavailable, err),
	}
}

// ScoringUnavailable creates a 502 error for an unreachable, failing or
// timed-out trust scorer.
func ScoringUnavailable(err error) *AppError {
	return &AppError{
		Code:    "SCORING_UNAVAILABLE",
		Message: "the trust scorer is unavailable, retry later",
		Status:  http.StatusBadGateway,
		Err:     errors.Join(ErrScoringUnavail, err),
	}
}

// ScoringContractViolation creates a 502 error for a scorer response that
// does not carry a usable trust score.
func ScoringContractViolation(message string) *AppError {
	return &AppError{
		Code:    "SCORING_CONTRACT_VIOLATION",
		Message: message,
		Status:  http.StatusBadGateway,
		Err:     ErrScoringContract,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrDuplicateReview):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrScoringUnavail), errors.Is(err, ErrScoringContract):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
