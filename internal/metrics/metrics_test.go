package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-data/canopy/internal/metrics"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/items/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/items/{id}", "200"))
	assert.Equal(t, float64(1), count, "request should be counted under its route pattern")
	assert.NotNil(t, m.RequestDuration.WithLabelValues("GET", "/items/{id}"))
}

func TestMiddlewareLabelsErrorStatus(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	count := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/missing", "404"))
	assert.Equal(t, float64(1), count)
}

func TestRecordPayload(t *testing.T) {
	t.Parallel()

	m := metrics.New()

	m.RecordPayload("array", "application/octet-stream", 128)
	m.RecordPayload("array", "application/octet-stream", 128)
	m.RecordPayload("dataframe", "text/csv", 64)

	assert.Equal(t, float64(256),
		testutil.ToFloat64(m.PayloadBytes.WithLabelValues("array", "application/octet-stream")))
	assert.Equal(t, float64(64),
		testutil.ToFloat64(m.PayloadBytes.WithLabelValues("dataframe", "text/csv")))
}

func TestHandlerServesExposition(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.RecordPayload("array", "application/json", 32)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "canopy_payload_bytes_total")
	assert.Contains(t, string(body), "go_goroutines", "runtime collector should be registered")
}
