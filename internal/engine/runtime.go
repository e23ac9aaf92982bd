// Package engine is the Engine Adapter (§4.1 of SPEC_FULL.md): it owns
// goja.Runtime construction, module loading, interruption and cloning
// behind a *Runtime. Other packages reach the raw goja.Runtime only through
// Runtime.Goja, though they still use goja's value types (reqengine, tenant
// and webapi import goja), and every callback receives its Runtime
// explicitly rather than reaching for ambient state (per spec.md §9's
// "engine callbacks with opaque data" guidance).
package engine

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
)

// Runtime wraps one goja.Runtime: the "isolate+context" of one Tenant.
// Construction, module loading, interruption and cloning all live here so
// tenant.Tenant never touches the goja.Runtime directly.
type Runtime struct {
	vm            *goja.Runtime
	memCapBytes   int64
	mu            sync.Mutex
	interruptible bool
}

// NewRuntime creates a fresh goja.Runtime with the given memory ceiling
// (best-effort — goja's heap accounting is approximate, unlike a native
// engine's precise allocator-level ceiling).
func NewRuntime(memCapBytes int64) *Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if memCapBytes > 0 {
		// goja approximates a memory ceiling by counting live values; best
		// effort only, exactly as spec.md §4.1 allows ("memory ceiling
		// expressible in bytes").
		_ = trySetMemoryLimit(vm, memCapBytes)
	}
	return &Runtime{vm: vm, memCapBytes: memCapBytes, interruptible: true}
}

// Goja exposes the underlying runtime to the webapi installers, which need
// the raw goja.Runtime to register globals, and to the Request Engine, which
// builds the Request value and reads the tenant env from it.
func (r *Runtime) Goja() *goja.Runtime { return r.vm }

// Interrupt requests termination of any script currently running on this
// runtime, from any goroutine (the CPU watchdog calls this from its own
// thread). Safe to call even when nothing is running.
func (r *Runtime) Interrupt(reason string) {
	r.vm.Interrupt(reason)
}

// ClearInterrupt cancels a pending interrupt so the runtime can be reused
// for the next request — called immediately after stopping the watchdog, so
// a terminate signal in flight never poisons a later request (spec.md §4.3).
func (r *Runtime) ClearInterrupt() {
	r.vm.ClearInterrupt()
}

// RunScript evaluates a plain script (used for the `nano eval` CLI command
// and for internal preludes) and returns its value export.
func (r *Runtime) RunScript(name, src string) (goja.Value, error) {
	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return r.vm.RunProgram(prog)
}

// Set installs a global value or function.
func (r *Runtime) Set(name string, value interface{}) error {
	return r.vm.Set(name, value)
}

// Get reads a global value.
func (r *Runtime) Get(name string) goja.Value {
	return r.vm.Get(name)
}

// ToValue converts a Go value into a goja.Value.
func (r *Runtime) ToValue(v interface{}) goja.Value {
	return r.vm.ToValue(v)
}

// NewObject creates a new plain JS object owned by this runtime.
func (r *Runtime) NewObject() *goja.Object {
	return r.vm.NewObject()
}

// DrainMicrotasks flushes goja's internal job queue. goja drains queued
// Promise reaction jobs as a side effect of any top-level Run call, so this
// is implemented as a harmless no-op evaluation — the same trick used to
// resettle promises after injecting an async completion from the event loop.
func (r *Runtime) DrainMicrotasks() {
	_, _ = r.vm.RunString("void 0;")
}

// trySetMemoryLimit calls goja's memory-limit hook if the vendored version
// provides it; older goja releases silently ignore the cap (best effort,
// exactly as allowed by spec.md §4.1).
func trySetMemoryLimit(vm *goja.Runtime, bytes int64) error {
	type memoryLimiter interface {
		SetMemoryLimit(int) error
	}
	if ml, ok := interface{}(vm).(memoryLimiter); ok {
		return ml.SetMemoryLimit(int(bytes))
	}
	return nil
}
