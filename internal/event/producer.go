package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	pkgkafka "github.com/Vishwagit2006/Final-Project-sub000/pkg/kafka"
)

// TopicReviewAccepted carries one event per accepted review, keyed by seller.
var TopicReviewAccepted = pkgkafka.Topic("review", "accepted")

// Aggregate type constant.
const AggregateTypeSeller = "seller"

// SourceSellerTrust identifies events originating from this service.
const SourceSellerTrust = "sellertrust"

// ReviewAcceptedData is the payload of a review.accepted event.
type ReviewAcceptedData struct {
	ReviewID         string    `json:"review_id"`
	SellerID         string    `json:"seller_id"`
	SellerName       string    `json:"seller_name"`
	ReviewerName     string    `json:"reviewer_name"`
	Rating           int       `json:"rating"`
	Recommend        bool      `json:"recommend"`
	Sentiment        string    `json:"sentiment"`
	TrustScore       float64   `json:"trust_score"`
	SellerTrustScore float64   `json:"seller_trust_score"`
	TotalReviews     int64     `json:"total_reviews"`
	AverageRating    float64   `json:"average_rating"`
	RecommendRate    int       `json:"recommend_rate"`
	CreatedAt        time.Time `json:"created_at"`
}

// publisher is the part of *pkgkafka.Producer the event producer uses.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes seller trust domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return newProducer(kafka, logger)
}

func newProducer(kafka publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewAccepted publishes a review.accepted event with the seller
// aggregate as of the commit.
func (p *Producer) PublishReviewAccepted(ctx context.Context, review *domain.Review, seller *domain.Seller) error {
	data := ReviewAcceptedData{
		ReviewID:         review.ID,
		SellerID:         seller.ID,
		SellerName:       seller.Name,
		ReviewerName:     review.ReviewerName,
		Rating:           review.Rating,
		Recommend:        review.Recommend,
		Sentiment:        string(review.Sentiment),
		TrustScore:       review.TrustScoreAtSubmission,
		SellerTrustScore: seller.TrustScore,
		TotalReviews:     seller.TotalReviews,
		AverageRating:    seller.AverageRating(),
		RecommendRate:    seller.RecommendRate(),
		CreatedAt:        review.CreatedAt,
	}

	event, err := pkgkafka.NewEvent(ctx, TopicReviewAccepted, seller.ID, AggregateTypeSeller, SourceSellerTrust, data)
	if err != nil {
		return fmt.Errorf("create review.accepted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewAccepted, event); err != nil {
		return fmt.Errorf("publish review.accepted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.accepted event",
		slog.String("review_id", review.ID),
		slog.String("seller_id", seller.ID),
	)

	return nil
}
