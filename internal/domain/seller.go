package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// DefaultTrustScore is the score a seller starts with before any review.
const DefaultTrustScore = 50.0

// legacyIDLength is the length of the document IDs issued before sellers
// moved to UUIDs.
const legacyIDLength = 20

// Seller is the canonical record aggregating all reviews about one
// counterparty. The counters only ever grow, and only through an aggregate
// delta applied by the store in the same transaction as the review insert.
type Seller struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	NormalizedName   string    `json:"normalized_name"`
	TrustScore       float64   `json:"trust_score"`
	TrustScoreAt     time.Time `json:"trust_score_at"`
	TotalReviews     int64     `json:"total_reviews"`
	TotalRatingSum   int64     `json:"total_rating_sum"`
	RecommendedCount int64     `json:"recommended_count"`
	Version          int64     `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewSeller builds a seller with empty counters and the default score.
func NewSeller(id, name string, now time.Time) *Seller {
	return &Seller{
		ID:             id,
		Name:           strings.TrimSpace(name),
		NormalizedName: NormalizeName(name),
		TrustScore:     DefaultTrustScore,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AverageRating is TotalRatingSum / TotalReviews rounded to one decimal, or
// 0 for a seller without reviews. It is derived on every call and never stored.
func (s *Seller) AverageRating() float64 {
	return AverageOf(s.TotalRatingSum, s.TotalReviews)
}

// RecommendRate is the percentage of reviews that recommend the seller,
// rounded to the nearest integer.
func (s *Seller) RecommendRate() int {
	return PercentOf(s.RecommendedCount, s.TotalReviews)
}

// Apply adds one accepted review to the counters. The trust score only moves
// forward in time: a delta scored before the current score is counted but
// does not replace it.
func (s *Seller) Apply(d AggregateDelta) {
	s.TotalReviews++
	s.TotalRatingSum += int64(d.Rating)
	if d.Recommend {
		s.RecommendedCount++
	}
	if !d.ScoredAt.Before(s.TrustScoreAt) {
		s.TrustScore = d.TrustScore
		s.TrustScoreAt = d.ScoredAt
	}
	s.Version++
	if d.ScoredAt.After(s.UpdatedAt) {
		s.UpdatedAt = d.ScoredAt
	}
}

// MarshalJSON adds the derived average_rating and recommend_rate.
func (s Seller) MarshalJSON() ([]byte, error) {
	type plain Seller
	return json.Marshal(struct {
		plain
		AverageRating float64 `json:"average_rating"`
		RecommendRate int     `json:"recommend_rate"`
	}{
		plain:         plain(s),
		AverageRating: s.AverageRating(),
		RecommendRate: s.RecommendRate(),
	})
}

// AggregateDelta is the change one accepted review makes to its seller.
type AggregateDelta struct {
	Rating     int
	Recommend  bool
	TrustScore float64
	ScoredAt   time.Time
}

// NormalizeName is the case-insensitive identity key of a seller name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CanonicalID returns the stored form of a seller ID. UUIDs are matched in
// any case but stored lowercase; other identifiers come back trimmed.
func CanonicalID(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if len(identifier) == 36 {
		if id, err := uuid.Parse(identifier); err == nil {
			return id.String()
		}
	}
	return identifier
}

// LooksLikeID reports whether identifier has the shape of a canonical seller
// ID: a UUID, or a 20-character alphanumeric legacy document ID.
func LooksLikeID(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if len(identifier) == 36 {
		_, err := uuid.Parse(identifier)
		return err == nil
	}
	if len(identifier) != legacyIDLength {
		return false
	}
	for _, r := range identifier {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}

// AverageOf returns sum/count rounded to one decimal, 0 when count is 0.
func AverageOf(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}

// PercentOf returns round(100*part/total), 0 when total is 0.
func PercentOf(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
