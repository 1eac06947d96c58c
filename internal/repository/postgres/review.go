package postgres

import (
	"context"
	"fmt"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// ReviewRepository implements review persistence on PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a review repository on db.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Exists reports whether reviewerName already reviewed sellerID.
func (r *ReviewRepository) Exists(ctx context.Context, reviewerName, sellerID string) (exists bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM reviews WHERE reviewer_name = $1 AND seller_id = $2)`
	ctx, end := database.TraceQuery(ctx, "reviews", "Exists", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, reviewerName, sellerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check review exists: %w", err)
	}
	return exists, nil
}

// InsertReview stores review. The unique (reviewer_name, seller_id)
// constraint is the final word on duplicates; a conflict affects no rows.
func (r *ReviewRepository) InsertReview(ctx context.Context, review *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, reviewer_name, seller_id, product, rating, recommend,
		                     comment, sentiment, trust_score_at_submission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (reviewer_name, seller_id) DO NOTHING`
	ctx, end := database.TraceQuery(ctx, "reviews", "Insert", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query,
		review.ID,
		review.ReviewerName,
		review.SellerID,
		review.ProductOrContext,
		review.Rating,
		review.Recommend,
		review.Comment,
		string(review.Sentiment),
		review.TrustScoreAtSubmission,
		review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.DuplicateReview(review.ReviewerName, review.SellerID)
	}
	return nil
}

// ListBySeller returns the newest limit reviews of a seller. The ORDER BY
// only picks the page; the profile assembler sorts the result itself.
func (r *ReviewRepository) ListBySeller(ctx context.Context, sellerID string, limit int) (reviews []domain.Review, err error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, reviewer_name, seller_id, product, rating, recommend, comment,
		       sentiment, trust_score_at_submission, created_at
		FROM reviews
		WHERE seller_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	ctx, end := database.TraceQuery(ctx, "reviews", "ListBySeller", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rv        domain.Review
			sentiment string
		)
		if err = rows.Scan(
			&rv.ID,
			&rv.ReviewerName,
			&rv.SellerID,
			&rv.ProductOrContext,
			&rv.Rating,
			&rv.Recommend,
			&rv.Comment,
			&sentiment,
			&rv.TrustScoreAtSubmission,
			&rv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		rv.Sentiment = domain.Sentiment(sentiment)
		reviews = append(reviews, rv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}
	return reviews, nil
}
