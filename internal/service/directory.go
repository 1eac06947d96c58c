package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// resolveState is a step of the seller resolution state machine.
type resolveState int

const (
	stateByName resolveState = iota
	stateByID
	stateCreate
	stateNotFound
)

func (s resolveState) String() string {
	switch s {
	case stateByName:
		return "by_name"
	case stateByID:
		return "by_id"
	case stateCreate:
		return "create"
	case stateNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("resolveState(%d)", int(s))
	}
}

// sellerCreator is the write half of resolution. It is nil for lookups.
type sellerCreator interface {
	CreateSeller(ctx context.Context, seller *domain.Seller) error
}

// Directory maps a free-text seller name or a canonical seller ID to exactly
// one seller record. Names are tried before IDs, so a seller whose name
// happens to look like an ID is still found by name.
type Directory struct {
	store repository.Store
	now   func() time.Time
}

// NewDirectory creates a directory over store.
func NewDirectory(store repository.Store) *Directory {
	return &Directory{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Lookup resolves identifier against committed sellers without creating
// anything. An unknown identifier yields an error wrapping ErrNotFound.
func (d *Directory) Lookup(ctx context.Context, identifier string) (*domain.Seller, error) {
	seller, _, err := resolve(ctx, d.store.Sellers(), nil, identifier, "", time.Time{})
	return seller, err
}

// Resolve finds or creates the seller for identifier inside tx. A new seller
// gets provisionalID. If a concurrent writer claims the name first, creation
// turns into one more lookup by name; losing that race twice surfaces as
// ErrConcurrentUpdate so the whole transaction is retried.
func (d *Directory) Resolve(ctx context.Context, tx repository.Tx, identifier, provisionalID string) (*domain.Seller, bool, error) {
	return resolve(ctx, tx, tx, identifier, provisionalID, d.now())
}

func resolve(ctx context.Context, repo repository.SellerRepository, creator sellerCreator, identifier, provisionalID string, now time.Time) (*domain.Seller, bool, error) {
	name := strings.TrimSpace(identifier)
	if name == "" {
		return nil, false, apperrors.Validation("seller", "is required")
	}
	normalized := domain.NormalizeName(name)

	state := stateByName
	retried := false
	for {
		switch state {
		case stateByName:
			seller, err := repo.GetByNormalizedName(ctx, normalized)
			if err == nil {
				return seller, false, nil
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, false, fmt.Errorf("resolve seller %s: %w", state, err)
			}
			state = stateByID

		case stateByID:
			if domain.LooksLikeID(name) {
				seller, err := repo.GetByID(ctx, domain.CanonicalID(name))
				if err == nil {
					return seller, false, nil
				}
				if !errors.Is(err, apperrors.ErrNotFound) {
					return nil, false, fmt.Errorf("resolve seller %s: %w", state, err)
				}
			}
			switch {
			case creator == nil:
				state = stateNotFound
			case retried:
				return nil, false, fmt.Errorf("resolve seller %q: name claimed but not visible: %w",
					normalized, apperrors.ErrConcurrentUpdate)
			default:
				state = stateCreate
			}

		case stateCreate:
			seller := domain.NewSeller(provisionalID, name, now)
			err := creator.CreateSeller(ctx, seller)
			if err == nil {
				return seller, true, nil
			}
			if !errors.Is(err, apperrors.ErrAlreadyExists) {
				return nil, false, fmt.Errorf("resolve seller %s: %w", state, err)
			}
			retried = true
			state = stateByName

		case stateNotFound:
			return nil, false, apperrors.NotFound("seller", name)
		}
	}
}
