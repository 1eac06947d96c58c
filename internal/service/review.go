package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/scorer"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/tracing"
)

const tracerName = "github.com/Vishwagit2006/Final-Project-sub000/internal/service"

// callerFaults are errors caused by the request rather than the service.
var callerFaults = []error{apperrors.ErrInvalidInput, apperrors.ErrDuplicateReview, apperrors.ErrNotFound}

// Input length limits.
const (
	MaxNameLength    = 200
	MaxCommentLength = 2000
)

// DefaultScoreTimeout bounds the trust scorer call.
const DefaultScoreTimeout = 15 * time.Second

// SubmissionTimeouts holds per-step timeouts of the submission pipeline. A
// zero value means the step inherits the caller's deadline.
type SubmissionTimeouts struct {
	// StepTimeout bounds seller lookup, the duplicate pre-check and the
	// commit transaction, each on its own.
	StepTimeout time.Duration
	// ScoreTimeout bounds the trust scorer call.
	ScoreTimeout time.Duration
}

// ProfileInvalidator drops cached profiles after a write.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, sellerID string) error
}

// EventPublisher announces accepted reviews.
type EventPublisher interface {
	PublishReviewAccepted(ctx context.Context, review *domain.Review, seller *domain.Seller) error
}

// SubmitReviewInput is one review as entered by a reviewer. Recommend is the
// "Yes"/"No" answer of the form.
type SubmitReviewInput struct {
	ReviewerName string
	Seller       string
	Product      string
	Rating       int
	Recommend    string
	Comment      string
	Context      string
}

// SubmitReviewResult is returned for an accepted review.
type SubmitReviewResult struct {
	TrustScore float64        `json:"trust_score"`
	Seller     *domain.Seller `json:"seller"`
	Review     *domain.Review `json:"review"`
}

// ReviewService runs the review submission pipeline.
type ReviewService struct {
	directory *Directory
	guard     *DuplicateGuard
	engine    *AggregateEngine
	scorer    scorer.Scorer
	cache     ProfileInvalidator
	publisher EventPublisher
	metrics   *Metrics
	logger    *slog.Logger
	timeouts  SubmissionTimeouts
	now       func() time.Time
}

// NewReviewService creates a review service. cache and publisher may be nil.
func NewReviewService(
	directory *Directory,
	guard *DuplicateGuard,
	engine *AggregateEngine,
	sc scorer.Scorer,
	cache ProfileInvalidator,
	publisher EventPublisher,
	metrics *Metrics,
	logger *slog.Logger,
	timeouts SubmissionTimeouts,
) *ReviewService {
	return &ReviewService{
		directory: directory,
		guard:     guard,
		engine:    engine,
		scorer:    sc,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		timeouts:  timeouts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type normalizedInput struct {
	reviewer  string
	seller    string
	product   string
	rating    int
	recommend bool
	comment   string
	context   string
}

func validateSubmission(in SubmitReviewInput) (normalizedInput, error) {
	out := normalizedInput{
		reviewer: strings.TrimSpace(in.ReviewerName),
		seller:   strings.TrimSpace(in.Seller),
		product:  strings.TrimSpace(in.Product),
		rating:   in.Rating,
		comment:  strings.TrimSpace(in.Comment),
		context:  strings.TrimSpace(in.Context),
	}

	required := []struct{ field, value string }{
		{"reviewer_name", out.reviewer},
		{"seller", out.seller},
		{"product", out.product},
	}
	for _, r := range required {
		if r.value == "" {
			return out, apperrors.Validation(r.field, "is required")
		}
		if utf8.RuneCountInString(r.value) > MaxNameLength {
			return out, apperrors.Validation(r.field, fmt.Sprintf("must be at most %d characters", MaxNameLength))
		}
	}
	if !domain.ValidRating(in.Rating) {
		return out, apperrors.Validation("rating", fmt.Sprintf("must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	recommend, err := domain.ParseRecommend(in.Recommend)
	if err != nil {
		return out, apperrors.Validation("recommend", `must be "Yes" or "No"`)
	}
	out.recommend = recommend
	if utf8.RuneCountInString(out.comment) > MaxCommentLength {
		return out, apperrors.Validation("comment", fmt.Sprintf("must be at most %d characters", MaxCommentLength))
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// SubmitReview validates, scores and commits one review. Nothing is
// persisted unless every step succeeds.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (result *SubmitReviewResult, err error) {
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ReviewService.SubmitReview")
	defer func() {
		s.metrics.submissions.WithLabelValues(outcome(err)).Inc()
		tracing.End(span, err, callerFaults...)
	}()

	in, err := validateSubmission(input)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithReviewer(ctx, in.reviewer)
	log := logger.WithContext(ctx, s.logger)

	// Submission time orders reviews and decides which trust score is newest.
	submittedAt := s.now()

	known, err := s.lookupSeller(ctx, in.seller)
	if err != nil {
		return nil, err
	}

	sellerID := uuid.New().String()
	if known != nil {
		sellerID = known.ID
		if err := s.checkDuplicate(ctx, in.reviewer, sellerID); err != nil {
			return nil, err
		}
	}

	scored, err := s.score(ctx, scorer.Request{
		ReviewerName: in.reviewer,
		SellerID:     sellerID,
		Product:      in.product,
		Rating:       in.rating,
		Recommend:    in.recommend,
		Comment:      in.comment,
		Context:      in.context,
	})
	if err != nil {
		log.ErrorContext(ctx, "trust scoring failed",
			slog.String("seller_id", sellerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	review := domain.Review{
		ID:                     uuid.New().String(),
		ReviewerName:           in.reviewer,
		ProductOrContext:       in.product,
		Rating:                 in.rating,
		Recommend:              in.recommend,
		Comment:                in.comment,
		Sentiment:              scored.Sentiment,
		TrustScoreAtSubmission: scored.Score,
		CreatedAt:              submittedAt,
	}

	commitCtx, cancel := withTimeout(ctx, s.timeouts.StepTimeout)
	committed, err := s.engine.Commit(commitCtx, in.seller, sellerID, review)
	cancel()
	if err != nil {
		if errors.Is(err, apperrors.ErrStoreUnavailable) {
			log.ErrorContext(ctx, "review commit failed",
				slog.String("seller_id", sellerID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	if committed.SellerCreated {
		log.InfoContext(ctx, "seller created",
			slog.String("seller_id", committed.Seller.ID),
			slog.String("name", committed.Seller.Name),
		)
	}
	log.InfoContext(ctx, "review accepted",
		slog.String("review_id", committed.Review.ID),
		slog.String("seller_id", committed.Seller.ID),
		slog.Int("rating", committed.Review.Rating),
		slog.Float64("trust_score", committed.Seller.TrustScore),
		slog.Int("attempts", committed.Attempts),
	)

	s.afterCommit(ctx, log, committed)

	return &SubmitReviewResult{
		TrustScore: committed.Review.TrustScoreAtSubmission,
		Seller:     committed.Seller,
		Review:     committed.Review,
	}, nil
}

// lookupSeller returns the committed seller for identifier, or nil if there
// is none yet.
func (s *ReviewService) lookupSeller(ctx context.Context, identifier string) (*domain.Seller, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.StepTimeout)
	defer cancel()

	seller, err := s.directory.Lookup(ctx, identifier)
	switch {
	case err == nil:
		return seller, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, nil
	case errors.Is(err, apperrors.ErrInvalidInput):
		return nil, err
	default:
		return nil, apperrors.StoreUnavailable(err)
	}
}

func (s *ReviewService) checkDuplicate(ctx context.Context, reviewer, sellerID string) error {
	ctx, cancel := withTimeout(ctx, s.timeouts.StepTimeout)
	defer cancel()
	return s.guard.Check(ctx, reviewer, sellerID)
}

// score calls the scorer and enforces the result contract regardless of the
// Scorer implementation.
func (s *ReviewService) score(ctx context.Context, req scorer.Request) (res scorer.Result, err error) {
	timeout := s.timeouts.ScoreTimeout
	if timeout <= 0 {
		timeout = DefaultScoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ctx, span := tracing.Tracer(tracerName).Start(ctx, "ReviewService.score")
	defer func() { tracing.End(span, err) }()

	res, err = s.scorer.Score(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) &&
			(errors.Is(err, apperrors.ErrScoringUnavail) || errors.Is(err, apperrors.ErrScoringContract)) {
			return scorer.Result{}, err
		}
		return scorer.Result{}, apperrors.ScoringUnavailable(err)
	}

	if math.IsNaN(res.Score) || res.Score < 0 || res.Score > 100 {
		return scorer.Result{}, apperrors.ScoringContractViolation(
			fmt.Sprintf("trust score %v is outside [0,100]", res.Score))
	}
	if sentiment, ok := domain.ParseSentiment(string(res.Sentiment)); ok {
		res.Sentiment = sentiment
	} else {
		res.Sentiment = domain.SentimentFromRating(req.Rating)
	}
	return res, nil
}

// afterCommit runs the best-effort side effects of an accepted review. The
// review is committed already, so failures are only logged.
func (s *ReviewService) afterCommit(ctx context.Context, log *slog.Logger, committed *CommitResult) {
	ctx = context.WithoutCancel(ctx)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, committed.Seller.ID); err != nil {
			log.WarnContext(ctx, "profile cache invalidation failed",
				slog.String("seller_id", committed.Seller.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReviewAccepted(ctx, committed.Review, committed.Seller); err != nil {
			log.WarnContext(ctx, "failed to publish review accepted event",
				slog.String("review_id", committed.Review.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
