// Package tenant implements the Tenant/App (SPEC_FULL.md §4.4) and the
// Tenant Registry (§4.5): one isolated goja.Runtime per tenant, hosting a
// Workers-compatible { fetch(request, env) } handler, plus the registry
// that routes inbound requests to the right tenant by hostname.
package tenant

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/webapi"
)

// State is the tenant's lifecycle state, checked by the HTTP Front End
// before routing a request (spec.md §4.11 step 4) and flipped by the
// Management API / Shutdown Controller.
type State int32

const (
	StateActive State = iota
	StateDraining
	StateStopped
	// StateUnhealthy is an internal-only state (not part of spec.md's public
	// state enum, per DESIGN.md's Open Question #3 decision): set after a
	// CPU-watchdog-triggered Interrupt, since goja does not guarantee a
	// Runtime recovers cleanly from forced termination mid-execution. The
	// next request against an unhealthy tenant probes the Runtime with a
	// cheap no-op call; on failure the tenant is torn down and its module
	// recompiled before serving, rather than silently reusing a possibly
	// corrupted Runtime. Exposed only in logs/metrics.
	StateUnhealthy
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Record is the normalized, already-defaulted tenant configuration the
// registry constructs a Tenant from — the config.App shape, stripped of
// config-file concerns.
type Record struct {
	Name            string
	Hostname        string
	Path            string
	TimeoutMS       int
	MemoryMB        int
	Env             map[string]string
	MaxBufferSizeMB int
}

// Tenant is one isolated JS application: its own goja.Runtime, its own
// compiled handler, its own lifecycle state. All request handling against
// a single Tenant is strictly serial (one goja.Runtime, one goroutine at a
// time) per spec.md §5's "each isolate is accessed exclusively from the
// main thread" rule; activeRequests only counts concurrently in-flight
// request-engine invocations for drain bookkeeping, not concurrent JS
// execution.
type Tenant struct {
	Record

	rt             *engine.Runtime
	handler        goja.Callable
	loop           *eventloop.Loop
	fetchTable     *engine.FetchTable
	env            *webapi.Env
	activeRequests atomic.Int64
	state          atomic.Int32
	mu             sync.Mutex
}

// Deps carries the shared, process-wide collaborators every Tenant needs
// at construction time.
type Deps struct {
	FetchTable *engine.FetchTable
	Fetcher    webapi.Fetcher
}

// Load constructs a Tenant from rec: creates an isolate with the
// configured memory cap, installs the Web Platform API surface, compiles
// <path>/index.js as an ES module, and extracts its fetch handler.
// Failure is fatal to this tenant only — the caller (the registry) must
// not add a partially-constructed Tenant.
func Load(rec Record, deps Deps) (*Tenant, error) {
	indexPath := filepath.Join(rec.Path, "index.js")
	source, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: read %s: %w", rec.Name, indexPath, err)
	}

	memCapBytes := int64(rec.MemoryMB) * 1024 * 1024
	rt := engine.NewRuntime(memCapBytes)
	loop := eventloop.New()

	maxBufferBytes := int64(rec.MaxBufferSizeMB) * 1024 * 1024
	env := &webapi.Env{
		Loop:                 loop,
		FetchTable:           deps.FetchTable,
		MaxStreamBufferBytes: maxBufferBytes,
		TenantEnv:            rec.Env,
		Fetcher:              deps.Fetcher,
	}
	if err := webapi.Install(rt, env); err != nil {
		return nil, fmt.Errorf("tenant %s: install web platform apis: %w", rec.Name, err)
	}

	handler, err := rt.CompileModule(indexPath, string(source))
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", rec.Name, err)
	}

	t := &Tenant{
		Record:     rec,
		rt:         rt,
		handler:    handler,
		loop:       loop,
		fetchTable: deps.FetchTable,
		env:        env,
	}
	t.state.Store(int32(StateActive))
	return t, nil
}

// Runtime exposes the tenant's engine.Runtime to the Request Engine.
func (t *Tenant) Runtime() *engine.Runtime { return t.rt }

// Loop exposes the tenant's event loop to the Request Engine's spin step.
func (t *Tenant) Loop() *eventloop.Loop { return t.loop }

// Env exposes the tenant's Web Platform API environment so the Request
// Engine can build Request/Response values that need it (e.g. a body
// getter backed by a ReadableStream).
func (t *Tenant) Env() *webapi.Env { return t.env }

// Handler returns the tenant's compiled fetch(request, env) callable.
func (t *Tenant) Handler() goja.Callable { return t.handler }

// State reports the tenant's current lifecycle state.
func (t *Tenant) State() State { return State(t.state.Load()) }

// ActiveRequests reports the number of in-flight serve() calls.
func (t *Tenant) ActiveRequests() int64 { return t.activeRequests.Load() }

// BeginRequest increments the active-request counter; the HTTP Front End
// calls this before dispatching to the Request Engine and defers
// EndRequest, so the counter drops again regardless of outcome.
func (t *Tenant) BeginRequest() { t.activeRequests.Add(1) }

// EndRequest decrements the active-request counter.
func (t *Tenant) EndRequest() { t.activeRequests.Add(-1) }

// InitiateDrain marks the tenant draining: the HTTP Front End stops
// routing new requests to it (spec.md §4.11 step 4) while in-flight
// requests finish.
func (t *Tenant) InitiateDrain() {
	t.state.CompareAndSwap(int32(StateActive), int32(StateDraining))
}

// IsDrained reports whether the tenant has no in-flight requests left,
// used by the Management API and Shutdown Controller to decide when a
// draining tenant is safe to destroy.
func (t *Tenant) IsDrained() bool {
	return t.ActiveRequests() == 0
}

// Destroy releases the tenant's isolate. goja.Runtime has no explicit
// dispose call; dropping the last Go reference lets it be garbage
// collected, matching spec.md §4.1's "create/destroy" mapped onto goja's
// GC-owned lifecycle.
func (t *Tenant) Destroy() {
	t.state.Store(int32(StateStopped))
}

// MarkUnhealthy flips an active tenant into the internal Unhealthy state
// after a CPU-watchdog Interrupt fires, per DESIGN.md's Open Question #3
// decision. A draining or already-stopped tenant is left alone.
func (t *Tenant) MarkUnhealthy() {
	t.state.CompareAndSwap(int32(StateActive), int32(StateUnhealthy))
}

// Probe runs a trivial no-op evaluation against the tenant's Runtime to
// check whether it recovered cleanly from a prior Interrupt. On success the
// tenant returns to Active; the caller is responsible for recompiling (via
// Recompile) and replacing the tenant when Probe fails.
func (t *Tenant) Probe() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.rt.RunScript("<probe>", "void 0;"); err != nil {
		return err
	}
	t.state.CompareAndSwap(int32(StateUnhealthy), int32(StateActive))
	return nil
}

// EnsureHealthy probes an Unhealthy tenant and recompiles it in place if
// the probe fails, per DESIGN.md's Open Question #3 decision. A no-op for
// any other state.
func (t *Tenant) EnsureHealthy(deps Deps) error {
	if t.State() != StateUnhealthy {
		return nil
	}
	if err := t.Probe(); err == nil {
		return nil
	}
	return t.Recompile(deps)
}

// Recompile tears down and rebuilds this tenant's isolate in place,
// recompiling <path>/index.js fresh — used when Probe reports the Runtime
// did not recover from a forced termination. Deps must match the ones the
// tenant was originally constructed with.
func (t *Tenant) Recompile(deps Deps) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fresh, err := Load(t.Record, deps)
	if err != nil {
		return err
	}
	t.rt = fresh.rt
	t.handler = fresh.handler
	t.loop = fresh.loop
	t.env = fresh.env
	t.state.Store(int32(StateActive))
	return nil
}
