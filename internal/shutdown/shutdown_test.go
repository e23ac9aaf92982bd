package shutdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/pkg/logger"
)

type fakeServer struct {
	stopped     bool
	shutdownErr error
}

func (f *fakeServer) StopAccepting() { f.stopped = true }
func (f *fakeServer) Shutdown(ctx context.Context) error {
	return f.shutdownErr
}

func newShutdownTestRegistry(t *testing.T) *tenant.Registry {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(`export default {
		fetch(request, env) { return new Response("ok"); }
	}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	deps := tenant.Deps{FetchTable: engine.NewFetchTable()}
	reg := tenant.NewRegistry(deps)
	if err := reg.Add(tenant.Record{Name: "a", Hostname: "a.example.com", Path: dir, MemoryMB: 64}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return reg
}

func TestShutdownStopsAcceptingAndDrainsTenants(t *testing.T) {
	reg := newShutdownTestRegistry(t)
	srv := &fakeServer{}
	c := New(srv, reg, logger.NewDefault("test")).WithDrainTimeout(200 * time.Millisecond)

	tn, _ := reg.Lookup("a.example.com")

	c.shutdown()

	if !srv.stopped {
		t.Fatalf("expected StopAccepting to be called")
	}
	if tn.State() != tenant.StateStopped {
		t.Fatalf("expected tenant destroyed after shutdown, got state %v", tn.State())
	}
}
