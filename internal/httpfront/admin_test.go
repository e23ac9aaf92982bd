package httpfront

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/logger"
)

const adminFixtureSource = `export default {
	fetch(request, env) {
		return new Response("ok");
	}
}`

func writeAdminFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(adminFixtureSource), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return dir
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	deps := tenant.Deps{FetchTable: engine.NewFetchTable()}
	reg := tenant.NewRegistry(deps)
	dir := writeAdminFixture(t)
	if err := reg.Add(tenant.Record{Name: "a", Hostname: "a.example.com", Path: dir, MemoryMB: 64, TimeoutMS: 1000}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return New(":0", reg, deps, logger.NewDefault("test"), "")
}

func TestAdminHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/health", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdminListApps(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/apps", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	apps, ok := body["apps"].([]interface{})
	if !ok || len(apps) != 1 {
		t.Fatalf("expected 1 app, got %+v", body)
	}
}

func TestAdminAddAppMissingFieldsRejected(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminAddAppDuplicateHostnameConflicts(t *testing.T) {
	s := newTestServer(t)
	dir := writeAdminFixture(t)
	payload, _ := json.Marshal(addAppRequest{Hostname: "a.example.com", Path: dir})
	req := httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBuffer(payload))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminAddAppSucceeds(t *testing.T) {
	s := newTestServer(t)
	dir := writeAdminFixture(t)
	payload, _ := json.Marshal(addAppRequest{Hostname: "b.example.com", Path: dir})
	req := httptest.NewRequest(http.MethodPost, "/admin/apps", bytes.NewBuffer(payload))
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := s.registry.Lookup("b.example.com"); !ok {
		t.Fatalf("expected b.example.com to be routable")
	}
}

func TestAdminRemoveAppRequiresHostname(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/admin/apps", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminRemoveAppUnknownHostnameNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/admin/apps?hostname=missing.example.com", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminUnmatchedPathIsNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/nonsense", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminWrongMethodIsMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPut, "/admin/apps", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestAdminReloadWithoutConfigPathIsNoop(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
