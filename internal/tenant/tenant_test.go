package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gleicon/nano/internal/engine"
)

const fixtureSource = `export default {
  async fetch(request, env) {
    return new Response("hello " + env.NAME);
  }
}`

func writeFixture(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(source), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return dir
}

func testDeps() Deps {
	return Deps{FetchTable: engine.NewFetchTable()}
}

func TestLoadCompilesHandlerAndEnv(t *testing.T) {
	dir := writeFixture(t, fixtureSource)
	rec := Record{Name: "demo", Hostname: "demo.local", Path: dir, TimeoutMS: 1000, MemoryMB: 64, Env: map[string]string{"NAME": "world"}, MaxBufferSizeMB: 8}

	tn, err := Load(rec, testDeps())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tn.State() != StateActive {
		t.Fatalf("expected active state, got %v", tn.State())
	}
	if tn.Handler() == nil {
		t.Fatalf("expected a compiled handler")
	}
}

func TestLoadMissingIndexFails(t *testing.T) {
	dir := t.TempDir()
	rec := Record{Name: "demo", Hostname: "demo.local", Path: dir, MemoryMB: 64}
	if _, err := Load(rec, testDeps()); err == nil {
		t.Fatalf("expected error for missing index.js")
	}
}

func TestLoadMissingFetchHandlerFails(t *testing.T) {
	dir := writeFixture(t, `export default { notFetch() {} }`)
	rec := Record{Name: "demo", Hostname: "demo.local", Path: dir, MemoryMB: 64}
	if _, err := Load(rec, testDeps()); err == nil {
		t.Fatalf("expected error for missing fetch export")
	}
}

func TestBeginEndRequestTracksActiveCount(t *testing.T) {
	dir := writeFixture(t, fixtureSource)
	rec := Record{Name: "demo", Hostname: "demo.local", Path: dir, MemoryMB: 64, Env: map[string]string{"NAME": "x"}}
	tn, err := Load(rec, testDeps())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tn.BeginRequest()
	tn.BeginRequest()
	if tn.ActiveRequests() != 2 {
		t.Fatalf("expected 2 active requests, got %d", tn.ActiveRequests())
	}
	if tn.IsDrained() {
		t.Fatalf("expected not drained with active requests")
	}
	tn.EndRequest()
	tn.EndRequest()
	if !tn.IsDrained() {
		t.Fatalf("expected drained once active requests reach zero")
	}
}

func TestInitiateDrainTransitionsStateOnce(t *testing.T) {
	dir := writeFixture(t, fixtureSource)
	rec := Record{Name: "demo", Hostname: "demo.local", Path: dir, MemoryMB: 64, Env: map[string]string{"NAME": "x"}}
	tn, err := Load(rec, testDeps())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tn.InitiateDrain()
	if tn.State() != StateDraining {
		t.Fatalf("expected draining, got %v", tn.State())
	}
	tn.Destroy()
	if tn.State() != StateStopped {
		t.Fatalf("expected stopped after destroy, got %v", tn.State())
	}
	tn.InitiateDrain()
	if tn.State() != StateStopped {
		t.Fatalf("expected a later InitiateDrain to leave state stopped, got %v", tn.State())
	}
}
