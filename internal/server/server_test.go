package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumivpn/discovery/internal/catalog"
	"github.com/lumivpn/discovery/internal/discovery"
)

func newTestServer(t *testing.T) (*Server, *discovery.Store) {
	t.Helper()

	store := discovery.NewStore()
	srv, err := New(Config{Store: store})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return srv, store
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestCatalogUnavailableBeforePublish(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/server_list", "/v1/organization_list"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, rec.Code)
		}
	}
}

func TestCatalogServedAfterPublish(t *testing.T) {
	srv, store := newTestServer(t)

	store.Publish(discovery.KindServerList, &catalog.ServerList{
		Version: 3,
		Servers: []catalog.Server{
			{BaseURL: "https://vpn.example.edu/", Type: catalog.ServerTypeInstituteAccess},
		},
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/server_list", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("missing Last-Modified header")
	}

	var got catalog.ServerList
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Servers) != 1 || got.Servers[0].BaseURL != "https://vpn.example.edu/" {
		t.Errorf("unexpected payload: %+v", got)
	}

	// The other kind is still unavailable
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/organization_list", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("organization_list = %d, want 503", rec.Code)
	}
}

func TestCatalogRemovedAfterDelete(t *testing.T) {
	srv, store := newTestServer(t)

	store.Publish(discovery.KindServerList, &catalog.ServerList{})
	store.Remove(discovery.KindServerList)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/server_list", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 after removal", rec.Code)
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing store")
	}
}
