package domain

import (
	"fmt"
	"strings"
	"time"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one reviewer's assessment of one seller. Reviews are immutable
// once stored.
type Review struct {
	ID                     string    `json:"id"`
	ReviewerName           string    `json:"reviewer_name"`
	SellerID               string    `json:"seller_id"`
	ProductOrContext       string    `json:"product"`
	Rating                 int       `json:"rating"`
	Recommend              bool      `json:"recommend"`
	Comment                string    `json:"comment,omitempty"`
	Sentiment              Sentiment `json:"sentiment"`
	TrustScoreAtSubmission float64   `json:"trust_score_at_submission"`
	CreatedAt              time.Time `json:"created_at"`
}

// Delta is the aggregate change this review applies to its seller.
func (r *Review) Delta() AggregateDelta {
	return AggregateDelta{
		Rating:     r.Rating,
		Recommend:  r.Recommend,
		TrustScore: r.TrustScoreAtSubmission,
		ScoredAt:   r.CreatedAt,
	}
}

// ValidRating reports whether rating is within 1..5.
func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// ParseRecommend maps the "Yes"/"No" answer of the review form to a bool.
// Matching ignores case and surrounding whitespace; "true" and "false" are
// accepted for API clients that send booleans as text.
func ParseRecommend(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("recommend must be \"Yes\" or \"No\", got %q", v)
	}
}

// FormatRecommend is the form answer for a recommend flag.
func FormatRecommend(recommend bool) string {
	if recommend {
		return "Yes"
	}
	return "No"
}
