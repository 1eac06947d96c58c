package domain

import (
	"sort"
	"time"
)

// DefaultRecentWindow is the trailing window used for recent activity.
const DefaultRecentWindow = 30 * 24 * time.Hour

// Profile is the read model shown for a seller.
type Profile struct {
	Seller  *Seller      `json:"seller"`
	Reviews []Review     `json:"reviews"`
	Stats   ProfileStats `json:"stats"`
}

// ProfileStats are recomputed from the loaded reviews on every read.
// StoredAverageRating comes from the seller counters and serves as a cross
// check against AverageRating.
type ProfileStats struct {
	AverageRating       float64 `json:"average_rating"`
	StoredAverageRating float64 `json:"stored_average_rating"`
	ReviewCount         int     `json:"review_count"`
	PositiveReviewCount int     `json:"positive_review_count"`
	NeutralReviewCount  int     `json:"neutral_review_count"`
	NegativeReviewCount int     `json:"negative_review_count"`
	RecentActivityCount int     `json:"recent_activity_count"`
	RecommendRate       int     `json:"recommend_rate"`
}

// SortReviewsNewestFirst orders reviews by CreatedAt descending. Equal
// timestamps fall back to ID descending so the order is total.
func SortReviewsNewestFirst(reviews []Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		a, b := reviews[i], reviews[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// ComputeStats derives ProfileStats from reviews as of now. Reviews created
// within window before now count as recent.
func ComputeStats(seller *Seller, reviews []Review, now time.Time, window time.Duration) ProfileStats {
	if window <= 0 {
		window = DefaultRecentWindow
	}
	cutoff := now.Add(-window)

	stats := ProfileStats{ReviewCount: len(reviews)}
	if seller != nil {
		stats.StoredAverageRating = seller.AverageRating()
	}

	var ratingSum, recommended int64
	for i := range reviews {
		r := &reviews[i]
		ratingSum += int64(r.Rating)
		if r.Recommend {
			recommended++
		}

		sentiment := r.Sentiment
		if _, ok := ParseSentiment(string(sentiment)); !ok {
			sentiment = SentimentFromRating(r.Rating)
		}
		switch sentiment {
		case SentimentPositive:
			stats.PositiveReviewCount++
		case SentimentNeutral:
			stats.NeutralReviewCount++
		case SentimentNegative:
			stats.NegativeReviewCount++
		}

		if !r.CreatedAt.Before(cutoff) && !r.CreatedAt.After(now) {
			stats.RecentActivityCount++
		}
	}

	n := int64(len(reviews))
	stats.AverageRating = AverageOf(ratingSum, n)
	stats.RecommendRate = PercentOf(recommended, n)
	return stats
}
