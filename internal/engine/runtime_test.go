package engine

import (
	"strings"
	"testing"

	"github.com/dop251/goja"
)

func TestCompileModuleExportDefault(t *testing.T) {
	rt := NewRuntime(0)
	fn, err := rt.CompileModule("index.js", `
		export default {
			fetch(request, env) {
				return "hello " + env.NAME;
			}
		};
	`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	result, err := fn(goja.Undefined(), rt.ToValue("req"), rt.ToValue(map[string]string{"NAME": "world"}))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := result.String(); got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestCompileModuleMissingFetchFails(t *testing.T) {
	rt := NewRuntime(0)
	_, err := rt.CompileModule("index.js", `export default { ping() {} };`)
	if err == nil {
		t.Fatal("expected error for missing fetch handler")
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Fatalf("expected error to mention fetch, got %v", err)
	}
}

func TestInterruptSurfacesAsTermination(t *testing.T) {
	rt := NewRuntime(0)
	done := make(chan struct{})
	go func() {
		<-done
		rt.Interrupt("timeout")
	}()
	close(done)

	_, err := rt.RunScript("loop.js", `while (true) {}`)
	if err == nil {
		t.Fatal("expected interrupted error")
	}
	if !IsTermination(err) {
		t.Fatalf("expected termination error, got %v", err)
	}
	rt.ClearInterrupt()
}

func TestStructuredCloneDisjointIdentity(t *testing.T) {
	rt := NewRuntime(0)
	val, err := rt.RunScript("obj.js", `({a: 1, b: [1,2,3], c: {d: true}})`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	cloned, err := rt.StructuredClone(val)
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if cloned == val {
		t.Fatal("expected clone to have disjoint identity")
	}
	origObj := val.(*goja.Object)
	cloneObj := cloned.(*goja.Object)
	if origObj.Get("a").ToInteger() != cloneObj.Get("a").ToInteger() {
		t.Fatal("expected equal values")
	}
}

func TestFormatErrorPlain(t *testing.T) {
	if got := FormatError(nil); got != "" {
		t.Fatalf("expected empty string for nil error, got %q", got)
	}
}
