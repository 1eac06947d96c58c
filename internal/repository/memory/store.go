// Package memory is an in-process repository.Store. Transactions are
// optimistic: reads record the seller version they saw and commit fails with
// apperrors.ErrConcurrentUpdate if any of them moved, or if a name or
// (reviewer, seller) pair was claimed in the meantime.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

type reviewKey struct {
	reviewer string
	seller   string
}

// Store keeps sellers and reviews in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	sellers  map[string]*domain.Seller
	byName   map[string]string
	reviews  map[string][]domain.Review
	reviewed map[reviewKey]struct{}

	// conflicts forces the next n commits to fail; see InjectConflicts.
	conflicts int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sellers:  make(map[string]*domain.Seller),
		byName:   make(map[string]string),
		reviews:  make(map[string][]domain.Review),
		reviewed: make(map[reviewKey]struct{}),
	}
}

// InjectConflicts makes the next n commits fail with ErrConcurrentUpdate.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// Sellers returns the committed seller reader.
func (s *Store) Sellers() repository.SellerRepository { return (*sellerReader)(s) }

// Reviews returns the committed review reader.
func (s *Store) Reviews() repository.ReviewRepository { return (*reviewReader)(s) }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of sellers and reviews committed.
func (s *Store) Len() (sellers, reviews int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rs := range s.reviews {
		reviews += len(rs)
	}
	return len(s.sellers), reviews
}

func (s *Store) getByID(id string) (*domain.Seller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seller, ok := s.sellers[id]
	if !ok {
		return nil, false
	}
	cp := *seller
	return &cp, true
}

func (s *Store) getByName(normalized string) (*domain.Seller, bool) {
	s.mu.RLock()
	id, ok := s.byName[normalized]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.getByID(id)
}

func (s *Store) hasReview(reviewer, sellerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reviewed[reviewKey{reviewer, sellerID}]
	return ok
}

type sellerReader Store

func (r *sellerReader) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seller, ok := (*Store)(r).getByID(id)
	if !ok {
		return nil, apperrors.NotFound("seller", id)
	}
	return seller, nil
}

func (r *sellerReader) GetByNormalizedName(ctx context.Context, normalizedName string) (*domain.Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seller, ok := (*Store)(r).getByName(normalizedName)
	if !ok {
		return nil, apperrors.NotFound("seller", normalizedName)
	}
	return seller, nil
}

type reviewReader Store

func (r *reviewReader) Exists(ctx context.Context, reviewerName, sellerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return (*Store)(r).hasReview(reviewerName, sellerID), nil
}

// ListBySeller returns the seller's newest limit reviews by CreatedAt, ties
// broken by ID, newest first. Commit order plays no part: a review whose
// scoring was slow commits late but keeps its early CreatedAt.
func (r *reviewReader) ListBySeller(ctx context.Context, sellerID string, limit int) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.reviews[sellerID])
	slices.SortFunc(out, newestFirst)
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Review{}
	}
	return out, nil
}

func newestFirst(a, b domain.Review) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// WithinTx runs fn against a private write set and applies it atomically.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := &tx{
		store:    s,
		readVer:  make(map[string]int64),
		created:  make(map[string]*domain.Seller),
		updated:  make(map[string]*domain.Seller),
		reviewed: make(map[reviewKey]struct{}),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return fmt.Errorf("commit: %w", apperrors.ErrConcurrentUpdate)
	}

	for id, ver := range t.readVer {
		current, ok := s.sellers[id]
		if !ok || current.Version != ver {
			return fmt.Errorf("commit seller %s: %w", id, apperrors.ErrConcurrentUpdate)
		}
	}
	for _, seller := range t.created {
		if _, taken := s.byName[seller.NormalizedName]; taken {
			return fmt.Errorf("commit seller name %q: %w", seller.NormalizedName, apperrors.ErrConcurrentUpdate)
		}
		if _, taken := s.sellers[seller.ID]; taken {
			return fmt.Errorf("commit seller id %s: %w", seller.ID, apperrors.ErrConcurrentUpdate)
		}
	}
	for key := range t.reviewed {
		if _, taken := s.reviewed[key]; taken {
			return fmt.Errorf("commit review: %w", apperrors.ErrConcurrentUpdate)
		}
	}

	for id, seller := range t.created {
		s.sellers[id] = seller
		s.byName[seller.NormalizedName] = id
	}
	for id, seller := range t.updated {
		s.sellers[id] = seller
	}
	for _, r := range t.reviews {
		s.reviews[r.SellerID] = append(s.reviews[r.SellerID], r)
		s.reviewed[reviewKey{r.ReviewerName, r.SellerID}] = struct{}{}
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
