package event

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/cache"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	pkgkafka "github.com/Vishwagit2006/Final-Project-sub000/pkg/kafka"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/logger"
)

// --- Mocks ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	return m.Called(ctx, topic, event).Error(0)
}

type mockInvalidator struct {
	mock.Mock
}

func (m *mockInvalidator) Invalidate(ctx context.Context, sellerID string) error {
	return m.Called(ctx, sellerID).Error(0)
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func acceptedFixture() (*domain.Review, *domain.Seller) {
	seller := domain.NewSeller("11111111-1111-1111-1111-111111111111", "Acme", testNow)
	review := &domain.Review{
		ID:                     "rev-1",
		ReviewerName:           "Alice",
		SellerID:               seller.ID,
		ProductOrContext:       "Rice donation",
		Rating:                 5,
		Recommend:              true,
		Sentiment:              domain.SentimentPositive,
		TrustScoreAtSubmission: 62,
		CreatedAt:              testNow,
	}
	seller.Apply(review.Delta())
	return review, seller
}

func newTestEvent(eventType string, aggregateID string, data any) *pkgkafka.Event {
	dataBytes, _ := json.Marshal(data)
	return &pkgkafka.Event{
		EventID:       "evt-test-123",
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: AggregateTypeSeller,
		Version:       1,
		Timestamp:     testNow,
		Source:        "test-service",
		Data:          dataBytes,
	}
}

// --- Producer ---

func TestPublishReviewAccepted(t *testing.T) {
	pub := new(mockPublisher)
	p := newProducer(pub, newTestLogger())
	review, seller := acceptedFixture()
	ctx := logger.WithCorrelationID(context.Background(), "req-42")

	var sent *pkgkafka.Event
	pub.On("Publish", ctx, "sellertrust.review.accepted", mock.AnythingOfType("*kafka.Event")).
		Run(func(args mock.Arguments) { sent = args.Get(2).(*pkgkafka.Event) }).
		Return(nil).Once()

	require.NoError(t, p.PublishReviewAccepted(ctx, review, seller))
	pub.AssertExpectations(t)

	require.NotNil(t, sent)
	assert.Equal(t, TopicReviewAccepted, sent.EventType)
	assert.Equal(t, seller.ID, sent.AggregateID)
	assert.Equal(t, AggregateTypeSeller, sent.AggregateType)
	assert.Equal(t, "req-42", sent.CorrelationID)
	assert.NotEmpty(t, sent.EventID)

	var data ReviewAcceptedData
	require.NoError(t, sent.UnmarshalData(&data))
	assert.Equal(t, "rev-1", data.ReviewID)
	assert.Equal(t, "Alice", data.ReviewerName)
	assert.Equal(t, 62.0, data.TrustScore)
	assert.Equal(t, int64(1), data.TotalReviews)
	assert.Equal(t, 5.0, data.AverageRating)
	assert.Equal(t, 100, data.RecommendRate)
	assert.Equal(t, "positive", data.Sentiment)
}

func TestPublishReviewAccepted_PublishError(t *testing.T) {
	pub := new(mockPublisher)
	p := newProducer(pub, newTestLogger())
	review, seller := acceptedFixture()

	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := p.PublishReviewAccepted(context.Background(), review, seller)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish review.accepted event")
}

// --- Consumer ---

func TestHandleReviewAccepted_InvalidatesSeller(t *testing.T) {
	inv := new(mockInvalidator)
	c := NewConsumer(inv, newTestLogger())
	ctx := context.Background()

	inv.On("Invalidate", ctx, "seller-1").Return(nil).Once()

	err := c.Handle(ctx, newTestEvent(TopicReviewAccepted, "agg-ignored", ReviewAcceptedData{SellerID: "seller-1"}))

	require.NoError(t, err)
	inv.AssertExpectations(t)
}

func TestHandleReviewAccepted_FallsBackToAggregateID(t *testing.T) {
	inv := new(mockInvalidator)
	c := NewConsumer(inv, newTestLogger())
	ctx := context.Background()

	inv.On("Invalidate", ctx, "seller-2").Return(nil).Once()

	require.NoError(t, c.Handle(ctx, newTestEvent(TopicReviewAccepted, "seller-2", ReviewAcceptedData{})))
	inv.AssertExpectations(t)
}

func TestHandleReviewAccepted_Errors(t *testing.T) {
	t.Run("malformed payload", func(t *testing.T) {
		inv := new(mockInvalidator)
		c := NewConsumer(inv, newTestLogger())
		ev := newTestEvent(TopicReviewAccepted, "seller-1", nil)
		ev.Data = json.RawMessage(`{"seller_id": 12`)

		assert.Error(t, c.Handle(context.Background(), ev))
		inv.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("no seller id", func(t *testing.T) {
		inv := new(mockInvalidator)
		c := NewConsumer(inv, newTestLogger())

		assert.Error(t, c.Handle(context.Background(), newTestEvent(TopicReviewAccepted, "", ReviewAcceptedData{})))
	})

	t.Run("cache failure is retried by the consumer", func(t *testing.T) {
		inv := new(mockInvalidator)
		c := NewConsumer(inv, newTestLogger())
		inv.On("Invalidate", mock.Anything, "seller-1").Return(errors.New("redis down"))

		err := c.Handle(context.Background(), newTestEvent(TopicReviewAccepted, "seller-1", ReviewAcceptedData{SellerID: "seller-1"}))
		assert.ErrorContains(t, err, "redis down")
	})
}

func TestHandle_UnknownEventTypeIgnored(t *testing.T) {
	inv := new(mockInvalidator)
	c := NewConsumer(inv, newTestLogger())

	require.NoError(t, c.Handle(context.Background(), newTestEvent("sellertrust.seller.renamed", "seller-1", nil)))
	inv.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestHandle_IdempotentAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()
	l := newTestLogger()

	profiles := cache.NewProfileCache(client, time.Minute, l)
	review, seller := acceptedFixture()
	require.NoError(t, profiles.Set(ctx, seller.ID, &domain.Profile{Seller: seller, Reviews: []domain.Review{*review}}))

	inv := &countingInvalidator{next: profiles}
	handler := pkgkafka.IdempotentHandler(
		pkgkafka.NewRedisIdempotencyStore(client, "sellertrust:events", time.Hour),
		NewConsumer(inv, l).Handle,
		nil,
		l,
	)
	ev := newTestEvent(TopicReviewAccepted, seller.ID, ReviewAcceptedData{SellerID: seller.ID})

	require.NoError(t, handler(ctx, ev))
	require.NoError(t, handler(ctx, ev))

	assert.Equal(t, 1, inv.calls)
	_, ok, err := profiles.Get(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

type countingInvalidator struct {
	next  ProfileInvalidator
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context, sellerID string) error {
	c.calls++
	return c.next.Invalidate(ctx, sellerID)
}
