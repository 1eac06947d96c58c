package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

const sellerColumns = `id, name, normalized_name, trust_score, trust_score_at,
	total_reviews, total_rating_sum, recommended_count, version, created_at, updated_at`

// SellerRepository implements seller persistence on PostgreSQL. It runs on
// the pool for reads and on a pgx.Tx inside WithinTx.
type SellerRepository struct {
	db database.DBTX
}

// NewSellerRepository creates a seller repository on db.
func NewSellerRepository(db database.DBTX) *SellerRepository {
	return &SellerRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeller(row rowScanner) (*domain.Seller, error) {
	var s domain.Seller
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.NormalizedName,
		&s.TrustScore,
		&s.TrustScoreAt,
		&s.TotalReviews,
		&s.TotalRatingSum,
		&s.RecommendedCount,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a seller by its canonical ID.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (seller *domain.Seller, err error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "sellers", "GetByID", query)
	defer func() { end(err) }()

	seller, err = scanSeller(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("seller", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get seller by id: %w", err)
	}
	return seller, nil
}

// GetByNormalizedName retrieves the seller owning a normalized name.
func (r *SellerRepository) GetByNormalizedName(ctx context.Context, normalizedName string) (seller *domain.Seller, err error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE normalized_name = $1`
	ctx, end := database.TraceQuery(ctx, "sellers", "GetByNormalizedName", query)
	defer func() { end(err) }()

	seller, err = scanSeller(r.db.QueryRow(ctx, query, normalizedName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("seller", normalizedName)
	}
	if err != nil {
		return nil, fmt.Errorf("get seller by name: %w", err)
	}
	return seller, nil
}

// CreateSeller inserts seller. ON CONFLICT DO NOTHING keeps the transaction
// usable when another writer owns the name, so the caller can fall back to a
// lookup in the same transaction.
func (r *SellerRepository) CreateSeller(ctx context.Context, seller *domain.Seller) (err error) {
	query := `
		INSERT INTO sellers (id, name, normalized_name, trust_score, trust_score_at,
		                     total_reviews, total_rating_sum, recommended_count, version,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (normalized_name) DO NOTHING`
	ctx, end := database.TraceQuery(ctx, "sellers", "Create", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query,
		seller.ID,
		seller.Name,
		seller.NormalizedName,
		seller.TrustScore,
		seller.TrustScoreAt,
		seller.TotalReviews,
		seller.TotalRatingSum,
		seller.RecommendedCount,
		seller.Version,
		seller.CreatedAt,
		seller.UpdatedAt,
	)
	if database.IsUniqueViolation(err, "") {
		return apperrors.AlreadyExists("seller", "id", seller.ID)
	}
	if err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.AlreadyExists("seller", "name", seller.NormalizedName)
	}
	return nil
}

// ApplyAggregate adds one review to the seller counters in a single UPDATE.
// The row lock taken by the UPDATE serializes concurrent writers of the same
// seller; the trust score only moves to a newer scored_at.
func (r *SellerRepository) ApplyAggregate(ctx context.Context, sellerID string, delta domain.AggregateDelta) (seller *domain.Seller, err error) {
	query := `
		UPDATE sellers SET
			total_reviews     = total_reviews + 1,
			total_rating_sum  = total_rating_sum + $2,
			recommended_count = recommended_count + $3,
			trust_score       = CASE WHEN $5 >= trust_score_at THEN $4 ELSE trust_score END,
			trust_score_at    = GREATEST(trust_score_at, $5),
			version           = version + 1,
			updated_at        = GREATEST(updated_at, $5)
		WHERE id = $1
		RETURNING ` + sellerColumns
	ctx, end := database.TraceQuery(ctx, "sellers", "ApplyAggregate", query)
	defer func() { end(err) }()

	recommended := 0
	if delta.Recommend {
		recommended = 1
	}

	seller, err = scanSeller(r.db.QueryRow(ctx, query,
		sellerID,
		delta.Rating,
		recommended,
		delta.TrustScore,
		delta.ScoredAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("seller", sellerID)
	}
	if err != nil {
		return nil, fmt.Errorf("apply seller aggregate: %w", err)
	}
	return seller, nil
}
