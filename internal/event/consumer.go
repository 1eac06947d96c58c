package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Vishwagit2006/Final-Project-sub000/pkg/kafka"
)

// ProfileInvalidator drops the cached profile of a seller.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, sellerID string) error
}

// Consumer keeps the profile cache of every instance in step with reviews
// accepted anywhere in the fleet.
type Consumer struct {
	cache  ProfileInvalidator
	logger *slog.Logger
}

// NewConsumer creates a new cache invalidation consumer.
func NewConsumer(cache ProfileInvalidator, logger *slog.Logger) *Consumer {
	return &Consumer{
		cache:  cache,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicReviewAccepted:
		return c.handleReviewAccepted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleReviewAccepted(ctx context.Context, event *pkgkafka.Event) error {
	var data ReviewAcceptedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	sellerID := data.SellerID
	if sellerID == "" {
		sellerID = event.AggregateID
	}
	if sellerID == "" {
		return fmt.Errorf("review.accepted event %s has no seller id", event.EventID)
	}

	if err := c.cache.Invalidate(ctx, sellerID); err != nil {
		return fmt.Errorf("invalidate profile of %s: %w", sellerID, err)
	}

	c.logger.DebugContext(ctx, "invalidated profile from review.accepted event",
		slog.String("seller_id", sellerID),
		slog.String("event_id", event.EventID),
	)
	return nil
}
