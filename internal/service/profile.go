package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/tracing"
)

// DefaultProfileReviewLimit caps the reviews loaded into one profile.
const DefaultProfileReviewLimit = 50

// ProfileCache is a read-through cache of assembled profiles.
type ProfileCache interface {
	GetOrLoad(ctx context.Context, sellerID string, load func(ctx context.Context) (*domain.Profile, error)) (*domain.Profile, error)
}

// ProfileConfig tunes profile assembly.
type ProfileConfig struct {
	ReviewLimit  int
	RecentWindow time.Duration
}

// ProfileService assembles seller profiles. It never writes to the store.
type ProfileService struct {
	directory *Directory
	reviews   repository.ReviewRepository
	cache     ProfileCache
	logger    *slog.Logger
	cfg       ProfileConfig
	now       func() time.Time
}

// NewProfileService creates a profile service. cache may be nil.
func NewProfileService(directory *Directory, reviews repository.ReviewRepository, cache ProfileCache, logger *slog.Logger, cfg ProfileConfig) *ProfileService {
	if cfg.ReviewLimit <= 0 {
		cfg.ReviewLimit = DefaultProfileReviewLimit
	}
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = domain.DefaultRecentWindow
	}
	return &ProfileService{
		directory: directory,
		reviews:   reviews,
		cache:     cache,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetSeller returns the seller for a name or canonical ID.
func (s *ProfileService) GetSeller(ctx context.Context, identifier string) (*domain.Seller, error) {
	seller, err := s.directory.Lookup(ctx, identifier)
	if err != nil {
		return nil, readFailure(err)
	}
	return seller, nil
}

// GetSellerProfile returns the seller, its newest reviews and statistics
// recomputed from those reviews.
func (s *ProfileService) GetSellerProfile(ctx context.Context, identifier string) (profile *domain.Profile, err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ProfileService.GetSellerProfile")
	defer func() { tracing.End(span, err, callerFaults...) }()

	seller, err := s.GetSeller(ctx, identifier)
	if err != nil {
		return nil, err
	}

	load := func(ctx context.Context) (*domain.Profile, error) {
		return s.assemble(ctx, seller)
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.GetOrLoad(ctx, seller.ID, load)
}

func (s *ProfileService) assemble(ctx context.Context, seller *domain.Seller) (*domain.Profile, error) {
	reviews, err := s.reviews.ListBySeller(ctx, seller.ID, s.cfg.ReviewLimit)
	if err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("list reviews of %s: %w", seller.ID, err))
	}

	// The store order is not relied upon.
	domain.SortReviewsNewestFirst(reviews)
	if reviews == nil {
		reviews = []domain.Review{}
	}

	profile := &domain.Profile{
		Seller:  seller,
		Reviews: reviews,
		Stats:   domain.ComputeStats(seller, reviews, s.now(), s.cfg.RecentWindow),
	}

	if int64(len(reviews)) == seller.TotalReviews && profile.Stats.AverageRating != profile.Stats.StoredAverageRating {
		s.logger.WarnContext(ctx, "stored aggregate disagrees with reviews",
			slog.String("seller_id", seller.ID),
			slog.Float64("average_rating", profile.Stats.AverageRating),
			slog.Float64("stored_average_rating", profile.Stats.StoredAverageRating),
		)
	}
	return profile, nil
}

func readFailure(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrInvalidInput):
		return err
	default:
		return apperrors.StoreUnavailable(err)
	}
}
