package repository

import (
	"context"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
)

// SellerRepository reads committed sellers. Lookups return an error wrapping
// apperrors.ErrNotFound when nothing matches.
type SellerRepository interface {
	// GetByID retrieves a seller by its canonical ID.
	GetByID(ctx context.Context, id string) (*domain.Seller, error)

	// GetByNormalizedName retrieves the seller owning a normalized name.
	GetByNormalizedName(ctx context.Context, normalizedName string) (*domain.Seller, error)
}

// ReviewRepository reads committed reviews.
type ReviewRepository interface {
	// Exists reports whether reviewerName already reviewed sellerID.
	Exists(ctx context.Context, reviewerName, sellerID string) (bool, error)

	// ListBySeller returns up to limit reviews of a seller. The order is
	// whatever the store yields; callers sort.
	ListBySeller(ctx context.Context, sellerID string, limit int) ([]domain.Review, error)
}

// Tx is the unit of work of one review submission. Everything written
// through a Tx becomes visible together when WithinTx returns nil, or not at
// all.
type Tx interface {
	SellerRepository

	// CreateSeller inserts seller unless its normalized name is taken, in
	// which case it returns an error wrapping apperrors.ErrAlreadyExists and
	// the transaction stays usable.
	CreateSeller(ctx context.Context, seller *domain.Seller) error

	// ReviewExists is Exists evaluated inside the transaction.
	ReviewExists(ctx context.Context, reviewerName, sellerID string) (bool, error)

	// InsertReview stores review unless (reviewer, seller) already has one,
	// in which case it returns an error wrapping apperrors.ErrDuplicateReview.
	InsertReview(ctx context.Context, review *domain.Review) error

	// ApplyAggregate atomically adds delta to the seller counters and returns
	// the updated seller. It is the only write path for aggregate fields.
	ApplyAggregate(ctx context.Context, sellerID string, delta domain.AggregateDelta) (*domain.Seller, error)
}

// Store is the persistent store behind the service layer.
type Store interface {
	Sellers() SellerRepository
	Reviews() ReviewRepository

	// WithinTx runs fn in a transaction and commits if fn returns nil. A lost
	// race with a concurrent writer surfaces as an error wrapping
	// apperrors.ErrConcurrentUpdate; the caller may run fn again.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
