package httpfront

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/logger"
)

func TestRouteTenantUnknownHostIsNotFound(t *testing.T) {
	deps := tenant.Deps{FetchTable: engine.NewFetchTable()}
	s := New(":0", tenant.NewRegistry(deps), deps, logger.NewDefault("test"), "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.example.com"
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unrouted host with no default, got %d", rec.Code)
	}
}

func TestRouteTenantServesRegisteredHost(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "a.example.com"
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("expected body 'ok', got %q", rec.Body.String())
	}
}

func TestStopAcceptingReturns503(t *testing.T) {
	s := newTestServer(t)
	s.StopAccepting()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "a.example.com"
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once stopping, got %d", rec.Code)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/admin/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
}

func TestDrainingTenantReturns503(t *testing.T) {
	s := newTestServer(t)
	tn, ok := s.registry.Lookup("a.example.com")
	if !ok {
		t.Fatalf("expected tenant a.example.com to exist")
	}
	tn.InitiateDrain()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "a.example.com"
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for draining tenant, got %d", rec.Code)
	}
}
