package reqengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/tenant"
)

func loadTestTenant(t *testing.T, source string, timeoutMS int) *tenant.Tenant {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte(source), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	rec := tenant.Record{
		Name:            "demo",
		Hostname:        "demo.local",
		Path:            dir,
		TimeoutMS:       timeoutMS,
		MemoryMB:        64,
		Env:             map[string]string{"NAME": "world"},
		MaxBufferSizeMB: 8,
	}
	tn, err := tenant.Load(rec, tenant.Deps{FetchTable: engine.NewFetchTable()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tn
}

func TestServeSyncHandlerReturnsResponse(t *testing.T) {
	tn := loadTestTenant(t, `export default {
		fetch(request, env) {
			return new Response("hi " + env.NAME, {status: 201});
		}
	}`, 1000)

	res := Serve(tn, RequestData{Method: "GET", URL: "http://demo.local/"})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Response == nil {
		t.Fatalf("expected a response")
	}
	if res.Response.Status != 201 {
		t.Fatalf("expected status 201, got %d", res.Response.Status)
	}
	if string(res.Response.Body) != "hi world" {
		t.Fatalf("expected body %q, got %q", "hi world", res.Response.Body)
	}
}

func TestServeAsyncHandlerSettlesViaSpin(t *testing.T) {
	tn := loadTestTenant(t, `export default {
		async fetch(request, env) {
			await new Promise(resolve => setTimeout(resolve, 10));
			return new Response("async " + env.NAME);
		}
	}`, 1000)

	res := Serve(tn, RequestData{Method: "GET", URL: "http://demo.local/"})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Response == nil || string(res.Response.Body) != "async world" {
		t.Fatalf("unexpected response: %+v", res.Response)
	}
}

func TestServeSyncThrowYieldsError(t *testing.T) {
	tn := loadTestTenant(t, `export default {
		fetch(request, env) {
			throw new Error("boom");
		}
	}`, 1000)

	res := Serve(tn, RequestData{Method: "GET", URL: "http://demo.local/"})
	if res.Err == nil {
		t.Fatalf("expected an error")
	}
}

func TestServeDeadlineExceededTimesOut(t *testing.T) {
	tn := loadTestTenant(t, `export default {
		async fetch(request, env) {
			await new Promise(() => {});
		}
	}`, 20)

	res := Serve(tn, RequestData{Method: "GET", URL: "http://demo.local/"})
	if !res.TimedOut {
		t.Fatalf("expected a timeout, got %+v", res)
	}
}
