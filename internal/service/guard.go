package service

import (
	"context"
	"strings"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// reviewChecker is satisfied by both the committed review reader and a Tx.
type reviewChecker interface {
	Exists(ctx context.Context, reviewerName, sellerID string) (bool, error)
}

type txReviewChecker struct{ tx repository.Tx }

func (c txReviewChecker) Exists(ctx context.Context, reviewerName, sellerID string) (bool, error) {
	return c.tx.ReviewExists(ctx, reviewerName, sellerID)
}

// DuplicateGuard enforces one review per (reviewer, seller). The pre-check
// runs on committed data; the unique key in the store settles races.
type DuplicateGuard struct {
	reviews repository.ReviewRepository
}

// NewDuplicateGuard creates a guard over committed reviews.
func NewDuplicateGuard(reviews repository.ReviewRepository) *DuplicateGuard {
	return &DuplicateGuard{reviews: reviews}
}

// HasReviewed reports whether reviewerName already reviewed sellerID. A
// store failure is a StoreUnavailable error, never a false.
func (g *DuplicateGuard) HasReviewed(ctx context.Context, reviewerName, sellerID string) (bool, error) {
	return hasReviewed(ctx, g.reviews, reviewerName, sellerID)
}

// Check returns a DuplicateReview error if the pair already has a review.
func (g *DuplicateGuard) Check(ctx context.Context, reviewerName, sellerID string) error {
	return check(ctx, g.reviews, reviewerName, sellerID)
}

// CheckTx is Check evaluated inside tx.
func (g *DuplicateGuard) CheckTx(ctx context.Context, tx repository.Tx, reviewerName, sellerID string) error {
	return check(ctx, txReviewChecker{tx}, reviewerName, sellerID)
}

func hasReviewed(ctx context.Context, c reviewChecker, reviewerName, sellerID string) (bool, error) {
	exists, err := c.Exists(ctx, strings.TrimSpace(reviewerName), sellerID)
	if err != nil {
		return false, apperrors.StoreUnavailable(err)
	}
	return exists, nil
}

func check(ctx context.Context, c reviewChecker, reviewerName, sellerID string) error {
	exists, err := hasReviewed(ctx, c, reviewerName, sellerID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.DuplicateReview(strings.TrimSpace(reviewerName), sellerID)
	}
	return nil
}
