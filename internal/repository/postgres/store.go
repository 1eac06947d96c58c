package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// Pool is what the store needs from *pgxpool.Pool.
type Pool interface {
	database.DBTX
	database.TxBeginner
	Ping(ctx context.Context) error
}

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	pool    Pool
	sellers *SellerRepository
	reviews *ReviewRepository
}

// NewStore creates a store on pool.
func NewStore(pool Pool) *Store {
	return &Store{
		pool:    pool,
		sellers: NewSellerRepository(pool),
		reviews: NewReviewRepository(pool),
	}
}

// Sellers returns the seller reader on the pool.
func (s *Store) Sellers() repository.SellerRepository { return s.sellers }

// Reviews returns the review reader on the pool.
func (s *Store) Reviews() repository.ReviewRepository { return s.reviews }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// WithinTx runs fn in a READ COMMITTED transaction. Serialization failures
// and deadlocks are reported as apperrors.ErrConcurrentUpdate.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, newTx(pgTx)); err != nil {
		return classify(err)
	}
	if err = pgTx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func classify(err error) error {
	if database.IsSerializationConflict(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrConcurrentUpdate, err)
	}
	return err
}

type tx struct {
	*SellerRepository
	reviews *ReviewRepository
}

func newTx(db database.DBTX) *tx {
	return &tx{
		SellerRepository: NewSellerRepository(db),
		reviews:          NewReviewRepository(db),
	}
}

func (t *tx) ReviewExists(ctx context.Context, reviewerName, sellerID string) (bool, error) {
	return t.reviews.Exists(ctx, reviewerName, sellerID)
}

func (t *tx) InsertReview(ctx context.Context, review *domain.Review) error {
	return t.reviews.InsertReview(ctx, review)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*tx)(nil)
)
