package scorer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/domain"
	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// scoreKeys are the response paths known to carry the score, in order of
// preference.
var scoreKeys = []string{
	"trust_score",
	"trustScore",
	"new_trust_score",
	"newTrustScore",
	"score",
	"data.trust_score",
	"data.trustScore",
}

var sentimentKeys = []string{"sentiment", "data.sentiment"}

// ParseResponse extracts the score and sentiment from a scorer response
// body. rating is used to derive the sentiment when the body has none.
func ParseResponse(body []byte, rating int) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, apperrors.ScoringContractViolation("trust scorer returned invalid JSON")
	}

	for _, key := range scoreKeys {
		v := gjson.GetBytes(body, key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}

		score, err := numeric(v)
		if err != nil {
			return Result{}, apperrors.ScoringContractViolation(fmt.Sprintf("trust scorer field %q: %v", key, err))
		}
		if score < 0 || score > 100 {
			return Result{}, apperrors.ScoringContractViolation(fmt.Sprintf("trust score %v is outside [0,100]", score))
		}

		return Result{Score: score, Sentiment: sentiment(body, rating)}, nil
	}

	return Result{}, apperrors.ScoringContractViolation("trust scorer response has no trust score")
}

func numeric(v gjson.Result) (float64, error) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.Str)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("not a number: %s", v.Raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %s", v.Raw)
	}
	return f, nil
}

func sentiment(body []byte, rating int) domain.Sentiment {
	for _, key := range sentimentKeys {
		if s, ok := domain.ParseSentiment(gjson.GetBytes(body, key).String()); ok {
			return s
		}
	}
	return domain.SentimentFromRating(rating)
}
