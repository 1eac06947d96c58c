package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Vishwagit2006/Final-Project-sub000/pkg/errors"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/httpclient"
)

const (
	serviceName     = "trust-scorer"
	maxResponseSize = 1 << 20
)

// Config holds the scorer client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client calls POST {BaseURL}/seller/{sellerId}/review through a circuit
// breaker. Every failure is an AppError: ScoringUnavailable for transport,
// timeout and non-2xx problems, ScoringContractViolation for a bad body.
type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *httpclient.CircuitBreakerClient
	logger   *slog.Logger
	duration *prometheus.HistogramVec
}

// NewClient builds a scorer client and registers its latency histogram on reg.
func NewClient(cfg Config, reg prometheus.Registerer, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Timeout
	httpCfg.MaxRetries = cfg.MaxRetries

	breakerCfg := httpclient.DefaultCircuitBreakerConfig(serviceName)
	breakerCfg.Metrics = httpclient.NewBreakerMetrics(reg, "sellertrust")

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), breakerCfg, logger),
		logger:  logger,
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sellertrust",
			Name:      "scorer_request_duration_seconds",
			Help:      "Latency of trust scorer calls by result.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		}, []string{"result"}),
	}
}

// Score sends req and validates the answer. The call is bounded by the
// configured timeout even if ctx has a later deadline.
func (c *Client) Score(ctx context.Context, req Request) (res Result, err error) {
	start := time.Now()
	defer func() { c.duration.WithLabelValues(resultLabel(err)).Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, apperrors.Internal(fmt.Errorf("encode scorer request: %w", err))
	}

	endpoint := c.baseURL + "/seller/" + url.PathEscape(req.SellerID) + "/review"
	resp, err := c.http.Post(ctx, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		c.logger.WarnContext(ctx, "trust scorer call failed",
			slog.String("seller_id", req.SellerID),
			slog.String("error", err.Error()),
		)
		return Result{}, apperrors.ScoringUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := httpclient.ParseResponseError(resp, serviceName)
		c.logger.WarnContext(ctx, "trust scorer rejected request",
			slog.String("seller_id", req.SellerID),
			slog.Int("status", resp.StatusCode),
			slog.String("error", statusErr.Error()),
		)
		return Result{}, apperrors.ScoringUnavailable(statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, apperrors.ScoringUnavailable(fmt.Errorf("read scorer response: %w", err))
	}

	return ParseResponse(body, req.Rating)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrScoringContract):
		return "contract_violation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "unavailable"
	}
}
