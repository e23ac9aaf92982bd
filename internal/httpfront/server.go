// Package httpfront is the HTTP Front End and Management API (SPEC_FULL.md
// §4.11, §4.12): it listens on the configured port, routes by Host to a
// tenant or to /admin/*, and serializes the tenant handler's Response.
// Lifecycle mirrors the teacher's httpapi.Service{Start,Stop} wrapping
// net/http.Server.
package httpfront

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gleicon/nano/internal/httpfront/middleware"
	"github.com/gleicon/nano/internal/reqengine"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/internal/webapi/streams"
	"github.com/gleicon/nano/pkg/logger"
	"github.com/gleicon/nano/pkg/metrics"
)

// adminRPS and adminBurst bound the Management API against accidental
// reload storms from a misconfigured orchestrator; generous enough that a
// human operator never notices them.
const (
	adminRPS   = 5
	adminBurst = 10
)

func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Server is the HTTP Front End's Service{Start,Stop} lifecycle.
type Server struct {
	addr     string
	server   *http.Server
	registry   *tenant.Registry
	deps       tenant.Deps
	log        *logger.Logger
	configPath string

	stopping chan struct{}
}

// New builds the Server's middleware-wrapped router. Order matters, per
// the teacher's documented convention: recovery outermost, then CORS
// (short-circuits preflight before anything downstream runs), then request
// logging, then the stopping check, then routing. Per-tenant metrics wrap
// the tenant handler specifically (inside routeTenant) rather than the
// whole chain, since the metric labels need the resolved tenant hostname;
// the admin subtree gets its own rate-limit wrapper instead of metrics.
// configPath may be empty when the server was started without a config
// file (single app_dir invocation); in that case POST /admin/reload is a
// no-op.
func New(addr string, registry *tenant.Registry, deps tenant.Deps, log *logger.Logger, configPath string) *Server {
	if log == nil {
		log = logger.NewDefault("httpfront")
	}
	s := &Server{addr: addr, registry: registry, deps: deps, log: log, configPath: configPath, stopping: make(chan struct{})}

	r := chi.NewRouter()
	r.Use(recoveryMiddleware(log))
	r.Use(corsMiddleware)
	r.Use(requestLoggingMiddleware(log))
	r.Use(s.stoppingMiddleware)

	limiter := middleware.NewRateLimiter(adminRPS, adminBurst)
	r.Mount("/admin", limiter.Wrap(newAdminRouter(s)))
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/*", http.HandlerFunc(s.routeTenant))

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// Start begins listening in a background goroutine; errors other than a
// clean Shutdown are logged (spec.md §4.11's exit-code 1 is the caller's
// responsibility when Start itself fails to bind).
func (s *Server) Start() error {
	ln, err := newListener(s.addr)
	if err != nil {
		return err
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("http server error: %v", err)
		}
	}()
	return nil
}

// StopAccepting closes the listening socket's future accepts via the
// stopping flag, checked before routing every request — spec.md §4.13's
// "stop flag the HTTP Front End checks before each accept" adapted onto
// net/http.Server (which has no hook before accept(), so it's enforced in
// the outermost middleware instead).
func (s *Server) StopAccepting() {
	close(s.stopping)
}

// Shutdown closes the listener and waits (bounded by ctx) for in-flight
// connections to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) stoppingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.stopping:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Service Unavailable"))
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// routeTenant implements spec.md §4.11 steps 3-5: look up the tenant by
// Host, reject with 404 if none (and no default), 503 if draining,
// otherwise serve and serialize.
func (s *Server) routeTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := s.registry.Lookup(r.Host)
	if !ok {
		http.NotFound(w, r)
		return
	}

	metrics.InstrumentHandler(t.Hostname, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.serveTenant(w, r, t)
	})).ServeHTTP(w, r)
}

func (s *Server) serveTenant(w http.ResponseWriter, r *http.Request, t *tenant.Tenant) {
	if t.State() == tenant.StateDraining || t.State() == tenant.StateStopped {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Service Unavailable"))
		return
	}

	if err := t.EnsureHealthy(s.deps); err != nil {
		s.log.Tenant(t.Hostname).Errorf("tenant failed to recover from termination: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("tenant unavailable: " + err.Error()))
		return
	}

	t.BeginRequest()
	metrics.SetActiveRequests(t.Hostname, t.ActiveRequests())
	defer func() {
		t.EndRequest()
		metrics.SetActiveRequests(t.Hostname, t.ActiveRequests())
	}()

	req, err := parseRequest(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(err.Error()))
		return
	}

	result := reqengine.Serve(t, req)
	writeResult(w, result, t, s.log)
}

func parseRequest(r *http.Request) (reqengine.RequestData, error) {
	var headers [][2]string
	for k, vs := range r.Header {
		for _, v := range vs {
			headers = append(headers, [2]string{k, v})
		}
	}
	var body []byte
	if r.Body != nil {
		defer r.Body.Close()
		buf := make([]byte, 0, 4096)
		tmp := make([]byte, 4096)
		for {
			n, err := r.Body.Read(tmp)
			if n > 0 {
				buf = append(buf, tmp[:n]...)
			}
			if err != nil {
				break
			}
		}
		body = buf
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := scheme + "://" + r.Host + r.URL.RequestURI()
	return reqengine.RequestData{
		Method:  r.Method,
		URL:     url,
		Headers: headers,
		Body:    body,
		Mime:    r.Header.Get("Content-Type"),
	}, nil
}

func writeResult(w http.ResponseWriter, result reqengine.Result, t *tenant.Tenant, log *logger.Logger) {
	if result.TimedOut {
		metrics.RecordScriptTimeout(t.Hostname)
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte("request timed out"))
		return
	}
	if result.Err != nil {
		log.Tenant(t.Hostname).Errorf("handler error: %v", result.Err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(result.Err.Error()))
		return
	}

	resp := result.Response
	for _, h := range resp.Headers {
		w.Header().Add(h[0], h[1])
	}

	if resp.Stream != nil {
		writeStreamingBody(w, resp.Status, resp.Stream, log, t.Hostname)
		return
	}

	w.Header().Set("Content-Length", itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// writeStreamingBody implements spec.md §4.11 step 5: a Response whose
// body is a ReadableStream is written as it is produced, one chunk per
// stream read, via Transfer-Encoding: chunked (net/http's default whenever
// Content-Length is left unset and the handler flushes) instead of
// buffering the whole body first.
func writeStreamingBody(w http.ResponseWriter, status int, rs *streams.ReadableStream, log *logger.Logger, hostname string) {
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)

	reader, err := rs.GetReader()
	if err != nil {
		log.Tenant(hostname).Errorf("streaming response: %v", err)
		return
	}
	for {
		res := reader.Read()
		if res.Err != nil {
			log.Tenant(hostname).Errorf("streaming response: %v", res.Err)
			return
		}
		if res.Done {
			return
		}
		if len(res.Value) == 0 {
			continue
		}
		if _, err := w.Write(res.Value); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
