package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsRouter(t *testing.T, status int) (*chi.Mux, *HTTPMetrics) {
	t.Helper()
	m := NewHTTPMetrics(prometheus.NewPedanticRegistry(), "sellertrust")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/sellers/{identifier}/profile", func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r, m
}

func TestHTTPMetrics_CountsByRoutePattern(t *testing.T) {
	r, m := newMetricsRouter(t, http.StatusOK)

	for _, id := range []string{"acme", "globex"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sellers/"+id+"/profile", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/sellers/{identifier}/profile", "200"))
	assert.Equal(t, float64(2), got)
	assert.Equal(t, 1, testutil.CollectAndCount(m.requests))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestHTTPMetrics_CapturesStatus(t *testing.T) {
	r, m := newMetricsRouter(t, http.StatusNotFound)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/sellers/nobody/profile", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/v1/sellers/{identifier}/profile", "404"))
	assert.Equal(t, float64(1), got)
}

func TestHTTPMetrics_InFlightReturnsToZero(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewPedanticRegistry(), "sellertrust")

	var during float64
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		during = testutil.ToFloat64(m.inFlight)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, float64(1), during)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.inFlight))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unknown", "200")))
}

func TestWrap_FlushReachesUnderlyingWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := wrap(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.NoError(t, http.NewResponseController(ww).Flush())
	assert.True(t, rec.Flushed)
	assert.Equal(t, http.StatusOK, statusOf(ww))
}
