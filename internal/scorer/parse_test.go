package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

func TestParseResponse_ScoreKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"snake case", `{"trust_score": 62}`, 62},
		{"camel case", `{"trustScore": 58.5}`, 58.5},
		{"new snake", `{"new_trust_score": 70}`, 70},
		{"new camel", `{"newTrustScore": 71}`, 71},
		{"plain score", `{"score": 0}`, 0},
		{"nested snake", `{"data": {"trust_score": 100}}`, 100},
		{"nested camel", `{"data": {"trustScore": 12.25}}`, 12.25},
		{"numeric string", `{"trust_score": " 64.5 "}`, 64.5},
		{"first key wins", `{"score": 10, "trust_score": 90}`, 90},
		{"null falls through", `{"trust_score": null, "score": 33}`, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse([]byte(tt.body), 4)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Score)
		})
	}
}

func TestParseResponse_ContractViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing score", `{"status": "ok"}`},
		{"above range", `{"trust_score": 100.5}`},
		{"below range", `{"trustScore": -1}`},
		{"bool", `{"trust_score": true}`},
		{"object", `{"score": {"value": 4}}`},
		{"non numeric string", `{"trust_score": "high"}`},
		{"nan string", `{"trust_score": "NaN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse([]byte(tt.body), 4)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrScoringContract)
		})
	}
}

func TestParseResponse_Sentiment(t *testing.T) {
	got, err := ParseResponse([]byte(`{"trust_score": 40, "sentiment": "Negative"}`), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNegative, got.Sentiment)

	got, err = ParseResponse([]byte(`{"data": {"trustScore": 40, "sentiment": "neutral"}}`), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNeutral, got.Sentiment)

	got, err = ParseResponse([]byte(`{"trust_score": 40, "sentiment": "mixed"}`), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentPositive, got.Sentiment)

	got, err = ParseResponse([]byte(`{"trust_score": 40}`), 2)
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNegative, got.Sentiment)
}
