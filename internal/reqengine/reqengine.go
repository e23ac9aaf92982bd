// Package reqengine implements the Request Engine (SPEC_FULL.md §4.9): it
// builds the JS Request, arms the CPU watchdog, invokes the tenant's
// handler, and spins the tenant's event loop until the returned promise
// settles or the request deadline expires.
package reqengine

import (
	"time"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/tenant"
	"github.com/gleicon/nano/internal/watchdog"
	"github.com/gleicon/nano/internal/webapi"
)

// spinPollInterval bounds how long one RunOnce blocking wait can take
// before the spin loop re-checks the overall request deadline.
const spinPollInterval = 5 * time.Millisecond

// RequestData is the plain-Go parsed HTTP request handed in by the HTTP
// Front End (spec.md §4.9 step 1 — no separate arena allocator is needed;
// Go's GC plays that role).
type RequestData struct {
	Method  string
	URL     string
	Headers [][2]string
	Body    []byte
	Mime    string
}

// Result is what Serve renders back to the HTTP Front End: either a
// successful response or an error, with TimedOut set when a deadline or
// watchdog timeout ended the request (the front end answers 504 for that
// and 500 for any other error).
type Result struct {
	Response *webapi.ResponseData
	Err      error
	TimedOut bool
}

// Serve runs one request against t: the full construct-invoke-spin-settle
// cycle of spec.md §4.9. Both the CPU watchdog and the spin deadline use
// the tenant's configured t.TimeoutMS.
func Serve(t *tenant.Tenant, req RequestData) Result {
	deadline := time.Now().Add(time.Duration(t.TimeoutMS) * time.Millisecond)

	vm := t.Runtime().Goja()
	webapiReq := webapi.NewRequest(req.URL, webapi.RequestInit{
		Method:  req.Method,
		Headers: webapi.NewHeaders(req.Headers),
		Body:    req.Body,
		Mime:    req.Mime,
	})
	reqValue := webapi.NewRequestValue(vm, t.Env(), webapiReq)
	envValue := vm.Get("__nano_env__")

	wd := watchdog.Start(t.Runtime(), time.Duration(t.TimeoutMS)*time.Millisecond)
	retVal, callErr := t.Handler()(goja.Undefined(), reqValue, envValue)
	if callErr != nil {
		wd.Stop()
		t.Runtime().ClearInterrupt()
		if engine.IsTermination(callErr) {
			t.MarkUnhealthy()
		}
		return Result{Err: callErr, TimedOut: engine.IsTermination(callErr)}
	}

	result := spin(t, retVal, deadline)
	wd.Stop()
	t.Runtime().ClearInterrupt()
	if result.TimedOut {
		t.MarkUnhealthy()
	}
	return result
}

// spin implements step 6 of spec.md §4.9: drain microtasks, check for
// settlement, otherwise let the event loop make progress (blocking only
// when it has pending work), until either the promise settles or the
// deadline passes.
func spin(t *tenant.Tenant, retVal goja.Value, deadline time.Time) Result {
	promise, isPromise := engine.AsPromise(retVal)
	if !isPromise {
		return responseFromValue(retVal)
	}

	loop := t.Loop()
	for {
		t.Runtime().DrainMicrotasks()
		drainCompletions(loop)

		if promise.State() == goja.PromiseStateFulfilled || promise.State() == goja.PromiseStateRejected {
			break
		}

		if time.Now().After(deadline) {
			return Result{TimedOut: true}
		}

		if loop.HasPendingWork() {
			wait := time.Until(deadline)
			if wait > spinPollInterval {
				wait = spinPollInterval
			}
			if wait < 0 {
				wait = 0
			}
			loop.RunOnce(wait)
		} else {
			loop.Tick()
			time.Sleep(time.Millisecond)
		}
	}

	val, err := engine.PromiseResult(promise)
	if err != nil {
		return Result{Err: err, TimedOut: engine.IsTermination(err)}
	}
	return responseFromValue(val)
}

// drainCompletions moves every finished background task (fetch, stream
// read/write, crypto op) out of the loop and runs its resolver, which
// settles the originating promise on this (the tenant's only) goroutine —
// spec.md §4.9 step 6 / §4.10 / §4.8 / §4.7a.
func drainCompletions(loop *eventloop.Loop) {
	for _, c := range loop.DrainCompletions() {
		c.Resolve()
	}
}

func responseFromValue(v goja.Value) Result {
	data, err := webapi.ExtractResponse(v)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Response: data}
}
