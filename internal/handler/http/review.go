package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/httputil"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/validator"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// RecommendAnswer is the recommend field of a review. Clients send either
// the form answer "Yes"/"No" or a JSON boolean.
type RecommendAnswer string

// UnmarshalJSON accepts a string or a boolean.
func (a *RecommendAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true":
		*a = "Yes"
		return nil
	case "false":
		*a = "No"
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("recommend must be \"Yes\", \"No\" or a boolean")
	}
	*a = RecommendAnswer(s)
	return nil
}

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	ReviewerName string          `json:"reviewer_name" validate:"notblank,max=200"`
	Seller       string          `json:"seller" validate:"notblank,max=200"`
	Product      string          `json:"product" validate:"notblank,max=200"`
	Rating       int             `json:"rating" validate:"min=1,max=5"`
	Recommend    RecommendAnswer `json:"recommend" validate:"yesno"`
	Comment      string          `json:"comment" validate:"max=2000"`
	Context      string          `json:"context" validate:"max=500"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      "INVALID_INPUT",
				Message:   "invalid request body: " + err.Error(),
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reviewer := strings.TrimSpace(req.ReviewerName)
	ctx := logger.WithReviewer(r.Context(), reviewer)
	ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("reviewer", reviewer)))
	r = r.WithContext(ctx)

	result, err := h.service.SubmitReview(ctx, service.SubmitReviewInput{
		ReviewerName: req.ReviewerName,
		Seller:       req.Seller,
		Product:      req.Product,
		Rating:       req.Rating,
		Recommend:    string(req.Recommend),
		Comment:      req.Comment,
		Context:      req.Context,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
