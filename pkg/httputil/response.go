package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format. Field
// names the first offending input field for validation errors; Fields lists
// all of them when a request DTO fails several rules at once.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Field     string            `json:"field,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standardized error response for err. AppErrors are
// rendered with their own code, message and status; bare sentinels are
// mapped through apperrors.HTTPStatus. Server-side failures (5xx) are logged
// with the request-scoped logger when the RequestLogger middleware is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	body := &ErrorResponse{RequestID: requestID}
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Code = appErr.Code
		body.Message = appErr.Message
		body.Field = appErr.Field
	} else {
		body.Code, body.Message = sentinelBody(err, status)
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("code", body.Code),
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: body})
}

func sentinelBody(err error, status int) (code, message string) {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		if errors.Is(err, apperrors.ErrDuplicateReview) {
			return "DUPLICATE_REVIEW", "reviewer has already reviewed this seller"
		}
		return "ALREADY_EXISTS", "resource already exists"
	case http.StatusBadRequest:
		return "INVALID_INPUT", err.Error()
	case http.StatusServiceUnavailable:
		return "STORE_UNAVAILABLE", "the review store is unavailable, retry later"
	case http.StatusBadGateway:
		return "SCORING_UNAVAILABLE", "the trust scorer is unavailable, retry later"
	default:
		return "INTERNAL_ERROR", "an internal error occurred"
	}
}

// WriteValidationError writes a 400 for a request DTO that failed decoding
// or validation. Field-level failures from the validator package are listed
// in Fields, and the alphabetically first one is reported as Field.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		fields := valErr.Fields()
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		resp := &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  fields,
		}
		if len(names) > 0 {
			resp.Field = names[0]
			resp.Message = names[0] + " " + fields[names[0]]
		}
		WriteJSON(w, http.StatusBadRequest, Response{Error: resp})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}
