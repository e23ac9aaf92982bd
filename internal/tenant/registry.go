package tenant

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gleicon/nano/internal/config"
)

// Registry is the single-writer Tenant Registry of spec.md §4.5: all
// mutations happen on the main goroutine between HTTP request dispatches
// (add/remove/reconcile from the Management API or the Config Watcher),
// while lookups happen once per inbound request — a read:write ratio high
// enough to justify RWMutex over the teacher's plain single-writer Mutex.
type Registry struct {
	mu          sync.RWMutex
	byHost      map[string]*Tenant
	defaultHost string
	order       []string // insertion order, for "first-inserted is default"
	deps        Deps
}

// NewRegistry returns an empty registry sharing deps across every Tenant
// it loads.
func NewRegistry(deps Deps) *Registry {
	return &Registry{byHost: make(map[string]*Tenant), deps: deps}
}

// normalizeHost lower-cases a Host header value and strips a trailing dot
// and port, per spec.md §4.5/§6.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// Lookup returns the tenant matching host, falling through to the default
// tenant when no hostname matches.
func (r *Registry) Lookup(host string) (*Tenant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.byHost[normalizeHost(host)]; ok {
		return t, true
	}
	if r.defaultHost == "" {
		return nil, false
	}
	t, ok := r.byHost[r.defaultHost]
	return t, ok
}

// Add loads and inserts a tenant from rec, failing if the hostname is
// already taken. The first tenant ever added becomes the default.
func (r *Registry) Add(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	host := normalizeHost(rec.Hostname)
	if _, exists := r.byHost[host]; exists {
		return fmt.Errorf("hostname already exists: %s", host)
	}

	t, err := Load(rec, r.deps)
	if err != nil {
		return err
	}

	r.byHost[host] = t
	r.order = append(r.order, host)
	if r.defaultHost == "" {
		r.defaultHost = host
	}
	return nil
}

// Remove begins draining the tenant at host rather than destroying it
// immediately (spec.md §4.12): the caller (Management API / drain
// reconciler) is responsible for calling Destroy once IsDrained is true or
// a deadline elapses.
func (r *Registry) Remove(host string) (*Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host = normalizeHost(host)
	t, ok := r.byHost[host]
	if !ok {
		return nil, fmt.Errorf("not found: %s", host)
	}
	if len(r.byHost) == 1 {
		return nil, fmt.Errorf("cannot remove last tenant")
	}

	t.InitiateDrain()
	delete(r.byHost, host)
	r.order = removeString(r.order, host)

	if r.defaultHost == host {
		r.defaultHost = ""
		if len(r.order) > 0 {
			r.defaultHost = r.order[0]
		}
	}
	return t, nil
}

// FinishRemoval is called once a drained tenant's deadline has elapsed or
// IsDrained() is true, to actually destroy its isolate. The tenant has
// already been unrouted by Remove; this only releases resources.
func (r *Registry) FinishRemoval(t *Tenant) {
	t.Destroy()
}

// List returns every currently-routed tenant, in insertion order, for the
// Management API's GET /admin/apps.
func (r *Registry) List() []*Tenant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tenant, 0, len(r.order))
	for _, host := range r.order {
		if t, ok := r.byHost[host]; ok {
			out = append(out, t)
		}
	}
	return out
}

// All returns every tenant the registry currently routes to, used by the
// Shutdown Controller to mark every tenant draining.
func (r *Registry) All() []*Tenant {
	return r.List()
}

// ReconcileResult summarizes one reconcile() pass for the Management API's
// POST /admin/reload response and for logging.
type ReconcileResult struct {
	Added   []string
	Removed []string
	Failed  map[string]error
}

// Reconcile diffs records against the current registry state: a record
// with no current match is added; a current host absent from records is
// removed; a record whose path changed for an existing hostname is
// replaced in place via replace (load-then-swap, draining the superseded
// tenant). Failures on one record are recorded and do not stop the
// remaining records from being processed.
func (r *Registry) Reconcile(records []config.App) ReconcileResult {
	result := ReconcileResult{Failed: make(map[string]error)}

	wanted := make(map[string]config.App, len(records))
	for _, app := range records {
		wanted[normalizeHost(app.Hostname)] = app
	}

	r.mu.RLock()
	current := make(map[string]*Tenant, len(r.byHost))
	for host, t := range r.byHost {
		current[host] = t
	}
	r.mu.RUnlock()

	for host, t := range current {
		if _, ok := wanted[host]; !ok {
			if _, err := r.Remove(host); err != nil {
				result.Failed[host] = err
				continue
			}
			result.Removed = append(result.Removed, host)
			_ = t
		}
	}

	for host, app := range wanted {
		if existing, ok := current[host]; ok {
			if existing.Path != app.Path {
				if err := r.replace(host, app); err != nil {
					result.Failed[host] = err
					continue
				}
				result.Added = append(result.Added, host)
			}
			continue
		}
		rec := Record{
			Name:            app.Name,
			Hostname:        app.Hostname,
			Path:            app.Path,
			TimeoutMS:       app.TimeoutMS,
			MemoryMB:        app.MemoryMB,
			Env:             app.Env,
			MaxBufferSizeMB: app.MaxBufferSizeMB,
		}
		if err := r.Add(rec); err != nil {
			result.Failed[host] = err
			continue
		}
		result.Added = append(result.Added, host)
	}

	return result
}

// replace implements the Open Question #1 decision (DESIGN.md): when a
// reconcile record's path changed for an already-routed hostname, load the
// new version first, then atomically swap it into the routing table and
// mark the superseded tenant draining — never leaving the hostname
// unroutable, and never serving stale code once the swap completes.
func (r *Registry) replace(host string, app config.App) error {
	rec := Record{
		Name:            app.Name,
		Hostname:        app.Hostname,
		Path:            app.Path,
		TimeoutMS:       app.TimeoutMS,
		MemoryMB:        app.MemoryMB,
		Env:             app.Env,
		MaxBufferSizeMB: app.MaxBufferSizeMB,
	}
	fresh, err := Load(rec, r.deps)
	if err != nil {
		return fmt.Errorf("replace %s: %w", host, err)
	}

	r.mu.Lock()
	old, ok := r.byHost[host]
	r.byHost[host] = fresh
	r.mu.Unlock()

	if ok {
		old.InitiateDrain()
	}
	return nil
}

func removeString(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
