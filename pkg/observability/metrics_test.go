package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/r-1/access-list", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/resources/r-1/access-list", "404"))
	assert.Equal(t, float64(1), count)
}

func TestObserveResolverOperation(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveResolverOperation("CheckAccess", nil, 5*time.Millisecond)
	metrics.ObserveResolverOperation("CheckAccess", errors.New("boom"), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolverOperationsTotal.WithLabelValues("CheckAccess", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolverOperationsTotal.WithLabelValues("CheckAccess", "error")))
}

func TestObserveAccessCheck(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveAccessCheck(true, "direct")
	metrics.ObserveAccessCheck(false, "")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AccessChecksTotal.WithLabelValues("granted", "direct")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AccessChecksTotal.WithLabelValues("denied", "none")))
}
