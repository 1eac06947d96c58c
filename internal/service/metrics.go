package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
)

// Metrics holds the service counters.
type Metrics struct {
	submissions      *prometheus.CounterVec
	aggregateRetries prometheus.Counter
}

// NewMetrics registers the service counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sellertrust",
			Name:      "review_submissions_total",
			Help:      "Review submissions by outcome.",
		}, []string{"outcome"}),
		aggregateRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sellertrust",
			Name:      "aggregate_retries_total",
			Help:      "Aggregate transactions retried after a concurrent update.",
		}),
	}
}

// outcome maps a submission result to a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, apperrors.ErrDuplicateReview):
		return "duplicate"
	case errors.Is(err, apperrors.ErrScoringContract):
		return "scoring_contract_violation"
	case errors.Is(err, apperrors.ErrScoringUnavail):
		return "scoring_unavailable"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
