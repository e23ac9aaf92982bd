package httpfront

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gleicon/nano/internal/config"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/metrics"
)

// drainDeadline bounds how long DELETE /admin/apps waits before forcing
// destruction of a still-draining tenant, per spec.md §4.12.
const drainDeadline = 30 * time.Second

func newAdminRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.adminHealth)
	r.Get("/apps", s.adminListApps)
	r.Post("/apps", s.adminAddApp)
	r.Delete("/apps", s.adminRemoveApp)
	r.Post("/reload", s.adminReload)
	r.NotFound(writeJSONError(http.StatusNotFound, "not found"))
	r.MethodNotAllowed(writeJSONError(http.StatusMethodNotAllowed, "method not allowed"))
	return r
}

func writeJSONError(status int, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) adminHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"apps":   len(s.registry.List()),
	})
}

type appSummary struct {
	Hostname  string `json:"hostname"`
	Path      string `json:"path"`
	TimeoutMS int    `json:"timeout_ms"`
}

func (s *Server) adminListApps(w http.ResponseWriter, r *http.Request) {
	tenants := s.registry.List()
	apps := make([]appSummary, 0, len(tenants))
	for _, t := range tenants {
		apps = append(apps, appSummary{
			Hostname:  t.Hostname,
			Path:      t.Path,
			TimeoutMS: t.TimeoutMS,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"apps": apps})
}

type addAppRequest struct {
	Hostname        string            `json:"hostname"`
	Path            string            `json:"path"`
	Name            string            `json:"name"`
	TimeoutMS       int               `json:"timeout_ms"`
	MemoryMB        int               `json:"memory_mb"`
	Env             map[string]string `json:"env"`
	MaxBufferSizeMB int               `json:"max_buffer_size_mb"`
}

func (s *Server) adminAddApp(w http.ResponseWriter, r *http.Request) {
	var req addAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Hostname == "" || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hostname and path are required"})
		return
	}
	if req.Name == "" {
		req.Name = req.Hostname
	}
	if req.TimeoutMS == 0 {
		req.TimeoutMS = 5000
	}
	if req.MemoryMB == 0 {
		req.MemoryMB = 128
	}
	if req.MaxBufferSizeMB == 0 {
		req.MaxBufferSizeMB = 64
	}

	rec := tenant.Record{
		Name:            req.Name,
		Hostname:        req.Hostname,
		Path:            req.Path,
		TimeoutMS:       req.TimeoutMS,
		MemoryMB:        req.MemoryMB,
		Env:             req.Env,
		MaxBufferSizeMB: req.MaxBufferSizeMB,
	}
	if err := s.registry.Add(rec); err != nil {
		status := http.StatusInternalServerError
		if isHostnameTaken(err) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	metrics.SetTenantCount(len(s.registry.List()))
	writeJSON(w, http.StatusCreated, map[string]string{"hostname": req.Hostname})
}

func (s *Server) adminRemoveApp(w http.ResponseWriter, r *http.Request) {
	hostname := r.URL.Query().Get("hostname")
	if hostname == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hostname query parameter is required"})
		return
	}

	t, err := s.registry.Remove(hostname)
	if err != nil {
		status := http.StatusNotFound
		if isLastTenant(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	go drainThenDestroy(s.registry, t, drainDeadline)
	metrics.SetTenantCount(len(s.registry.List()))
	writeJSON(w, http.StatusOK, map[string]string{"hostname": hostname, "status": "draining"})
}

// drainThenDestroy waits for active requests to reach zero or deadline,
// then destroys the tenant unconditionally (spec.md §4.12: in-flight
// requests race termination past the deadline).
func drainThenDestroy(registry *tenant.Registry, t *tenant.Tenant, deadline time.Duration) {
	cutoff := time.Now().Add(deadline)
	for time.Now().Before(cutoff) {
		if t.IsDrained() {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	registry.FinishRemoval(t)
}

func (s *Server) adminReload(w http.ResponseWriter, r *http.Request) {
	if s.configPath == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "no config file configured"})
		return
	}
	doc, err := config.Load(s.configPath)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	result := s.registry.Reconcile(doc.Apps)
	metrics.SetTenantCount(len(s.registry.List()))

	failed := make(map[string]string, len(result.Failed))
	for host, err := range result.Failed {
		failed[host] = err.Error()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added":   result.Added,
		"removed": result.Removed,
		"failed":  failed,
	})
}

func isHostnameTaken(err error) bool {
	return containsSubstring(err.Error(), "already exists")
}

func isLastTenant(err error) bool {
	return containsSubstring(err.Error(), "cannot remove last tenant")
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
