package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kinobot/internal/catalog"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/telegram"
	"kinobot/internal/testsupport"
)

type idlePoller struct{}

func (idlePoller) Run(ctx context.Context, _ telegram.Handler) error {
	<-ctx.Done()
	return nil
}

func newTestAPI(t *testing.T, token string) (*apiServer, *testsupport.MemoryBackend) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = token
	store, backend := testsupport.NewStore(t)
	ctx := context.Background()
	if err := store.Insert(ctx, testsupport.Single("4821", "fp-movie")); err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, testsupport.Series("1307", "fp-e1", "fp-e2")); err != nil {
		t.Fatal(err)
	}
	d, err := New(cfg, Components{
		Store:   store,
		Poller:  idlePoller{},
		Handler: func(context.Context, messenger.Update) {},
	}, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return d.api, backend
}

func serve(srv *apiServer, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, req)
	return w
}

func TestCatalogListing(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	cases := []struct {
		name   string
		target string
		want   []string
	}{
		{"all", "/api/catalog", []string{"1307", "4821"}},
		{"singles", "/api/catalog?kind=single", []string{"4821"}},
		{"series any case", "/api/catalog?kind=SERIES", []string{"1307"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(srv, http.MethodGet, tc.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d", w.Code)
			}
			var resp catalogResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Count != len(tc.want) {
				t.Fatalf("count = %d, want %d", resp.Count, len(tc.want))
			}
			for i, code := range tc.want {
				if resp.Entries[i].Code != code {
					t.Fatalf("entry %d = %s, want %s", i, resp.Entries[i].Code, code)
				}
			}
		})
	}

	if w := serve(srv, http.MethodGet, "/api/catalog?kind=album", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown kind, got %d", w.Code)
	}
	if strings.Contains(serve(srv, http.MethodGet, "/api/catalog", "").Body.String(), "ref-") {
		t.Fatal("listing must not expose media references")
	}
}

func TestCatalogEntry(t *testing.T) {
	srv, _ := newTestAPI(t, "")

	w := serve(srv, http.MethodGet, "/api/catalog/1307", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var detail catalog.Detail
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Kind != catalog.KindSeries || len(detail.EpisodeList) != 2 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	cases := []struct {
		target string
		status int
	}{
		{"/api/catalog/12a4", http.StatusBadRequest},
		{"/api/catalog/123456", http.StatusBadRequest},
		{"/api/catalog/0007", http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := serve(srv, http.MethodGet, tc.target, ""); w.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.target, tc.status, w.Code)
		}
	}
	if w := serve(srv, http.MethodPost, "/api/catalog/1307", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", w.Code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	srv, _ := newTestAPI(t, "s3cret")

	if w := serve(srv, http.MethodGet, "/api/catalog", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/catalog", "wrong"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/api/catalog", "s3cret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	if w := serve(srv, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz must stay open, got %d", w.Code)
	}
}

func TestHealthDegradedOnStorageError(t *testing.T) {
	srv, backend := newTestAPI(t, "")
	backend.FailReads = true

	w := serve(srv, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" || resp.Error == "" {
		t.Fatalf("unexpected health body %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestAPI(t, "")
	serve(srv, http.MethodGet, "/healthz", "")

	w := serve(srv, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "kinobot_") {
		t.Fatal("expected kinobot metrics in exposition")
	}
}

func TestAPIDisabledWithoutBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.Bind = ""
	if srv := newAPIServer(cfg, nil, logging.NewNop()); srv != nil {
		t.Fatal("expected nil server when api.bind is empty")
	}
}
