package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme", NormalizeName("  Acme "))
	assert.Equal(t, "acme trading co", NormalizeName("ACME Trading Co"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestLooksLikeID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0b6b3c4e-6a4f-4a59-9a0e-0f8e3f0a1b2c", true},
		{" 0b6b3c4e-6a4f-4a59-9a0e-0f8e3f0a1b2c ", true},
		{"aB3dE5gH7jK9mN1pQ3sT", true},
		{"aB3dE5gH7jK9mN1pQ3s", false},
		{"aB3dE5gH7jK9mN1pQ3s!", false},
		{"acme", false},
		{"Acme Trading Company!", false},
		{"0b6b3c4e-6a4f-4a59-9a0e-0f8e3f0a1bzz", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LooksLikeID(tt.in), tt.in)
	}
}

func TestCanonicalID(t *testing.T) {
	assert.Equal(t, "0b6b3c4e-6a4f-4a59-9a0e-0f8e3f0a1b2c", CanonicalID(" 0B6B3C4E-6A4F-4A59-9A0E-0F8E3F0A1B2C "))
	assert.Equal(t, "aB3dE5gH7jK9mN1pQ3sT", CanonicalID("aB3dE5gH7jK9mN1pQ3sT"))
	assert.Equal(t, "Acme", CanonicalID(" Acme "))
}

func TestNewSeller_Defaults(t *testing.T) {
	s := NewSeller("s-1", " Acme ", t0)

	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, "acme", s.NormalizedName)
	assert.Equal(t, DefaultTrustScore, s.TrustScore)
	assert.Zero(t, s.TotalReviews)
	assert.Zero(t, s.AverageRating())
	assert.Zero(t, s.RecommendRate())
}

func TestSeller_Apply(t *testing.T) {
	s := NewSeller("s-1", "Acme", t0)

	s.Apply(AggregateDelta{Rating: 5, Recommend: true, TrustScore: 62, ScoredAt: t0.Add(time.Minute)})
	assert.Equal(t, int64(1), s.TotalReviews)
	assert.Equal(t, int64(5), s.TotalRatingSum)
	assert.Equal(t, int64(1), s.RecommendedCount)
	assert.Equal(t, 5.0, s.AverageRating())
	assert.Equal(t, 100, s.RecommendRate())
	assert.Equal(t, 62.0, s.TrustScore)

	s.Apply(AggregateDelta{Rating: 3, Recommend: false, TrustScore: 58, ScoredAt: t0.Add(2 * time.Minute)})
	assert.Equal(t, int64(2), s.TotalReviews)
	assert.Equal(t, int64(8), s.TotalRatingSum)
	assert.Equal(t, 4.0, s.AverageRating())
	assert.Equal(t, 50, s.RecommendRate())
	assert.Equal(t, 58.0, s.TrustScore)
	assert.Equal(t, int64(2), s.Version)
}

func TestSeller_ApplyOlderScoreKeepsNewer(t *testing.T) {
	s := NewSeller("s-1", "Acme", t0)
	s.Apply(AggregateDelta{Rating: 4, TrustScore: 70, ScoredAt: t0.Add(2 * time.Minute)})
	s.Apply(AggregateDelta{Rating: 2, TrustScore: 40, ScoredAt: t0.Add(time.Minute)})

	assert.Equal(t, int64(2), s.TotalReviews)
	assert.Equal(t, 70.0, s.TrustScore)
	assert.Equal(t, t0.Add(2*time.Minute), s.TrustScoreAt)
}

func TestAverageAndPercentRounding(t *testing.T) {
	assert.Equal(t, 3.7, AverageOf(11, 3))
	assert.Equal(t, 4.5, AverageOf(9, 2))
	assert.Equal(t, 0.0, AverageOf(10, 0))
	assert.Equal(t, 67, PercentOf(2, 3))
	assert.Equal(t, 33, PercentOf(1, 3))
	assert.Equal(t, 0, PercentOf(1, 0))
}

func TestSeller_MarshalJSONIncludesDerived(t *testing.T) {
	s := NewSeller("s-1", "Acme", t0)
	s.Apply(AggregateDelta{Rating: 5, Recommend: true, TrustScore: 62, ScoredAt: t0})
	s.Apply(AggregateDelta{Rating: 3, TrustScore: 58, ScoredAt: t0})

	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "s-1", out["id"])
	assert.Equal(t, 4.0, out["average_rating"])
	assert.Equal(t, float64(50), out["recommend_rate"])
	assert.Equal(t, float64(2), out["total_reviews"])
	assert.NotContains(t, out, "Version")
}
