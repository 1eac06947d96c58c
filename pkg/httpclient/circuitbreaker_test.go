package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// statusServer answers with whatever status is stored in status and counts
// the requests that reach it.
type statusServer struct {
	*httptest.Server
	status atomic.Int32
	hits   atomic.Int32
}

func newStatusServer(t *testing.T, status int) *statusServer {
	t.Helper()
	s := &statusServer{}
	s.status.Store(int32(status))
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.hits.Add(1)
		w.WriteHeader(int(s.status.Load()))
		_, _ = w.Write([]byte(`{"error":{"code":"SCORER_DOWN","message":"model offline"}}`))
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestBreaker(t *testing.T, reg prometheus.Registerer) *CircuitBreakerClient {
	t.Helper()
	cfg := CircuitBreakerConfig{
		Name:         "scorer",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      100 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
	if reg != nil {
		cfg.Metrics = NewBreakerMetrics(reg, "test")
	}
	return NewCircuitBreakerClient(New(Config{Timeout: time.Second, MaxConnsPerHost: 4}), cfg, testLogger())
}

func post(cb *CircuitBreakerClient, ctx context.Context, url string) (*http.Response, error) {
	resp, err := cb.Post(ctx, url, "application/json", strings.NewReader(`{"rating":5}`))
	if resp != nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func TestCircuitBreaker_PassesSuccess(t *testing.T) {
	srv := newStatusServer(t, http.StatusOK)
	cb := newTestBreaker(t, nil)

	resp, err := post(cb, context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ServerErrorBecomesStatusError(t *testing.T) {
	srv := newStatusServer(t, http.StatusBadGateway)
	cb := newTestBreaker(t, nil)

	resp, err := post(cb, context.Background(), srv.URL)

	assert.Nil(t, resp)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "SCORER_DOWN", statusErr.Code)
	assert.Equal(t, "scorer", statusErr.Service)
}

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	srv := newStatusServer(t, http.StatusInternalServerError)
	cb := newTestBreaker(t, reg)

	for i := 0; i < 3; i++ {
		_, err := post(cb, context.Background(), srv.URL)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := post(cb, context.Background(), srv.URL)

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "scorer")
	assert.Equal(t, int32(3), srv.hits.Load())

	want := `
# HELP test_circuit_breaker_state Circuit breaker state (0=closed, 1=half-open, 2=open).
# TYPE test_circuit_breaker_state gauge
test_circuit_breaker_state{name="scorer"} 2
# HELP test_circuit_breaker_rejected_total Calls refused by an open or saturated half-open breaker.
# TYPE test_circuit_breaker_rejected_total counter
test_circuit_breaker_rejected_total{name="scorer"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want),
		"test_circuit_breaker_state", "test_circuit_breaker_rejected_total"))
}

func TestCircuitBreaker_TooManyRequestsCountsAsFailure(t *testing.T) {
	srv := newStatusServer(t, http.StatusTooManyRequests)
	cb := newTestBreaker(t, nil)

	for i := 0; i < 3; i++ {
		_, err := post(cb, context.Background(), srv.URL)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.True(t, statusErr.Temporary())
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	srv := newStatusServer(t, http.StatusUnprocessableEntity)
	cb := newTestBreaker(t, nil)

	for i := 0; i < 5; i++ {
		resp, err := post(cb, context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationNotCounted(t *testing.T) {
	srv := newStatusServer(t, http.StatusOK)
	cb := newTestBreaker(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := post(cb, ctx, srv.URL)
		require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeCloses(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	srv := newStatusServer(t, http.StatusInternalServerError)
	cb := newTestBreaker(t, reg)

	for i := 0; i < 3; i++ {
		_, _ = post(cb, context.Background(), srv.URL)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	srv.status.Store(http.StatusOK)
	require.Eventually(t, func() bool {
		return cb.State() == gobreaker.StateHalfOpen
	}, 2*time.Second, 10*time.Millisecond)

	_, err := post(cb, context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	want := `
# HELP test_circuit_breaker_state Circuit breaker state (0=closed, 1=half-open, 2=open).
# TYPE test_circuit_breaker_state gauge
test_circuit_breaker_state{name="scorer"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "test_circuit_breaker_state"))
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("trust-scorer")

	assert.Equal(t, "trust-scorer", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.Metrics)
}
