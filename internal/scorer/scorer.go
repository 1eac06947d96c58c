// Package scorer talks to the external trust scorer. The service layer only
// sees the Scorer interface, so tests substitute a Func.
package scorer

import (
	"context"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
)

// Request is the review payload sent for scoring.
type Request struct {
	ReviewerName string `json:"reviewerName"`
	SellerID     string `json:"sellerId"`
	Product      string `json:"product"`
	Rating       int    `json:"rating"`
	Recommend    bool   `json:"recommend"`
	Comment      string `json:"comment"`
	Context      string `json:"context"`
}

// Result is a validated scorer answer. Score is within [0,100].
type Result struct {
	Score     float64
	Sentiment domain.Sentiment
}

// Scorer computes the trust score of a seller after a review.
type Scorer interface {
	Score(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to Scorer.
type Func func(ctx context.Context, req Request) (Result, error)

// Score calls f.
func (f Func) Score(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
