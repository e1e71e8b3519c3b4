package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"transport-vendor-api/internal/models"
	"transport-vendor-api/internal/testutil"
	"transport-vendor-api/pkg/importer"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /metrics, got %d", w.Code)
	}
	return w.Body.String()
}

func TestMetricsWithChiRoutePatterns(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())

	router.Get("/vendors/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("vendor"))
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	testReq := httptest.NewRequest("GET", "/vendors/123", nil)
	testW := httptest.NewRecorder()
	router.ServeHTTP(testW, testReq)

	if testW.Body.String() != "vendor" {
		t.Errorf("Expected body 'vendor', got '%s'", testW.Body.String())
	}

	body := scrape(t, router)
	for _, metric := range []string{"http_requests_total", "http_request_duration_seconds"} {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric '%s' not found in response", metric)
		}
	}
	if !strings.Contains(body, `path="/vendors/{id}"`) {
		t.Error("Expected metrics to contain Chi route pattern, not actual path")
	}
}

func TestMetricsObserveImport(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveImport(importer.Summary{Total: 4, Imported: 3, Errors: []importer.RowError{{Row: 5}}}, nil)
	metrics.ObserveImport(importer.Summary{}, importer.ErrEmptyFile)

	body := scrape(t, metrics.Handler())
	for _, want := range []string{
		`vendor_import_runs_total{outcome="ok"} 1`,
		`vendor_import_runs_total{outcome="rejected"} 1`,
		`vendor_import_rows_total{result="imported"} 3`,
		`vendor_import_rows_total{result="failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in metrics output", want)
		}
	}
}

func TestServerMetricsEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnableMetrics = true
	st := testutil.NewMemStore()
	st.Err = &models.StoreUnavailableError{Cause: models.CauseAuthFailed, Err: errors.New("password authentication failed")}
	srv := NewServer(cfg, st, zerolog.Nop())

	req := httptest.NewRequest("GET", "/api/vendors", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}

	body := scrape(t, srv.Router)
	if !strings.Contains(body, `vendor_store_unavailable_total{cause="auth_failed"} 1`) {
		t.Error("Expected store outage to be counted")
	}
	if !strings.Contains(body, `path="/api/vendors"`) {
		t.Error("Expected request under /api to be labelled with its route pattern")
	}
}

func TestServerMetricsDisabled(t *testing.T) {
	srv := NewServer(testConfig(), testutil.NewMemStore(), zerolog.Nop())

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 with metrics disabled, got %d", w.Code)
	}
}
