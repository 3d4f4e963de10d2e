package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetCatalogSize(t *testing.T) {
	SetCatalogSize(42)
	if got := testutil.ToFloat64(CatalogEntries); got != 42 {
		t.Fatalf("expected gauge 42, got %v", got)
	}
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware())
	router.Get("/api/catalog/{code}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/api/catalog/0001", "/api/catalog/0002"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/catalog/{code}", "418"))
	if got != 2 {
		t.Fatalf("expected both requests under the route pattern, got %v", got)
	}
}
