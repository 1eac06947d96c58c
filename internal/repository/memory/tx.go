package memory

import (
	"context"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// tx buffers writes until commit. Reads see the transaction's own writes
// first, then committed state.
type tx struct {
	store *Store

	readVer  map[string]int64
	created  map[string]*domain.Seller
	updated  map[string]*domain.Seller
	reviews  []domain.Review
	reviewed map[reviewKey]struct{}
}

func (t *tx) lookupID(id string) (*domain.Seller, bool) {
	if s, ok := t.updated[id]; ok {
		cp := *s
		return &cp, true
	}
	if s, ok := t.created[id]; ok {
		cp := *s
		return &cp, true
	}
	return t.store.getByID(id)
}

func (t *tx) GetByID(ctx context.Context, id string) (*domain.Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seller, ok := t.lookupID(id)
	if !ok {
		return nil, apperrors.NotFound("seller", id)
	}
	return seller, nil
}

func (t *tx) GetByNormalizedName(ctx context.Context, normalizedName string) (*domain.Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for id, s := range t.created {
		if s.NormalizedName == normalizedName {
			return t.GetByID(ctx, id)
		}
	}
	seller, ok := t.store.getByName(normalizedName)
	if !ok {
		return nil, apperrors.NotFound("seller", normalizedName)
	}
	return t.GetByID(ctx, seller.ID)
}

func (t *tx) CreateSeller(ctx context.Context, seller *domain.Seller) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.GetByNormalizedName(ctx, seller.NormalizedName); err == nil {
		return apperrors.AlreadyExists("seller", "name", seller.NormalizedName)
	}
	if _, ok := t.lookupID(seller.ID); ok {
		return apperrors.AlreadyExists("seller", "id", seller.ID)
	}
	cp := *seller
	t.created[cp.ID] = &cp
	return nil
}

func (t *tx) ReviewExists(ctx context.Context, reviewerName, sellerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, ok := t.reviewed[reviewKey{reviewerName, sellerID}]; ok {
		return true, nil
	}
	return t.store.hasReview(reviewerName, sellerID), nil
}

func (t *tx) InsertReview(ctx context.Context, review *domain.Review) error {
	exists, err := t.ReviewExists(ctx, review.ReviewerName, review.SellerID)
	if err != nil {
		return err
	}
	if exists {
		return apperrors.DuplicateReview(review.ReviewerName, review.SellerID)
	}
	if _, ok := t.lookupID(review.SellerID); !ok {
		return apperrors.NotFound("seller", review.SellerID)
	}
	t.reviews = append(t.reviews, *review)
	t.reviewed[reviewKey{review.ReviewerName, review.SellerID}] = struct{}{}
	return nil
}

func (t *tx) ApplyAggregate(ctx context.Context, sellerID string, delta domain.AggregateDelta) (*domain.Seller, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s, ok := t.created[sellerID]; ok {
		s.Apply(delta)
		cp := *s
		return &cp, nil
	}

	current, ok := t.updated[sellerID]
	if !ok {
		committed, found := t.store.getByID(sellerID)
		if !found {
			return nil, apperrors.NotFound("seller", sellerID)
		}
		t.readVer[sellerID] = committed.Version
		current = committed
		t.updated[sellerID] = current
	}
	current.Apply(delta)
	cp := *current
	return &cp, nil
}

var _ repository.Tx = (*tx)(nil)
