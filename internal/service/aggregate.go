package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// Aggregate retry defaults.
const (
	DefaultAggregateMaxRetries = 5
	defaultRetryBase           = 10 * time.Millisecond
)

// CommitResult is what one committed submission wrote.
type CommitResult struct {
	Seller        *domain.Seller
	Review        *domain.Review
	SellerCreated bool
	Attempts      int
}

// AggregateEngine commits a scored review and its aggregate delta in one
// store transaction. It is the only caller of Tx.ApplyAggregate.
type AggregateEngine struct {
	store      repository.Store
	directory  *Directory
	guard      *DuplicateGuard
	metrics    *Metrics
	logger     *slog.Logger
	maxRetries int
	retryBase  time.Duration
}

// NewAggregateEngine creates an engine that retries a lost race up to
// maxRetries times.
func NewAggregateEngine(store repository.Store, directory *Directory, guard *DuplicateGuard, metrics *Metrics, logger *slog.Logger, maxRetries int) *AggregateEngine {
	if maxRetries < 0 {
		maxRetries = DefaultAggregateMaxRetries
	}
	return &AggregateEngine{
		store:      store,
		directory:  directory,
		guard:      guard,
		metrics:    metrics,
		logger:     logger,
		maxRetries: maxRetries,
		retryBase:  defaultRetryBase,
	}
}

// Commit resolves (or creates) the seller for identifier, re-checks the
// duplicate key, inserts review and applies its delta, all atomically.
// review.SellerID is filled in from the resolved seller. A concurrent update
// restarts the transaction with jittered backoff; once retries run out the
// failure is reported as StoreUnavailable.
func (e *AggregateEngine) Commit(ctx context.Context, identifier, provisionalID string, review domain.Review) (*CommitResult, error) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			wait := database.Backoff(attempt-1, e.retryBase)
			e.metrics.aggregateRetries.Inc()
			e.logger.WarnContext(ctx, "aggregate update conflicted, retrying",
				slog.String("seller", identifier),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.StoreUnavailable(fmt.Errorf("aggregate retry aborted: %w", ctx.Err()))
			case <-time.After(wait):
			}
		}

		result, err := e.commitOnce(ctx, identifier, provisionalID, review)
		if err == nil {
			result.Attempts = attempt + 1
			return result, nil
		}
		if !errors.Is(err, apperrors.ErrConcurrentUpdate) {
			return nil, storeFailure(err)
		}
		lastErr = err
	}

	return nil, apperrors.StoreUnavailable(fmt.Errorf("aggregate update failed after %d attempts: %w", e.maxRetries+1, lastErr))
}

func (e *AggregateEngine) commitOnce(ctx context.Context, identifier, provisionalID string, review domain.Review) (*CommitResult, error) {
	var result CommitResult
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		seller, created, err := e.directory.Resolve(ctx, tx, identifier, provisionalID)
		if err != nil {
			return err
		}

		review.SellerID = seller.ID
		if err := e.guard.CheckTx(ctx, tx, review.ReviewerName, seller.ID); err != nil {
			return err
		}
		if err := tx.InsertReview(ctx, &review); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}

		updated, err := tx.ApplyAggregate(ctx, seller.ID, review.Delta())
		if err != nil {
			return fmt.Errorf("apply aggregate: %w", err)
		}

		stored := review
		result = CommitResult{Seller: updated, Review: &stored, SellerCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// storeFailure keeps caller-facing errors as they are and turns everything
// else coming out of the store into StoreUnavailable.
func storeFailure(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrDuplicateReview),
		errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrStoreUnavailable):
		return err
	default:
		return apperrors.StoreUnavailable(err)
	}
}
