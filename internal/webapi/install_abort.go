package webapi

import (
	"time"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/eventloop"
)

func newAbortSignalObject(vm *goja.Runtime, s *AbortSignal) *goja.Object {
	obj := vm.NewObject()
	// Stashed so fetch()'s init.signal can recover the native *AbortSignal
	// for context cancellation; plain goja objects otherwise export to a
	// bare map with no way back to the Go value that built them.
	_ = obj.Set("__nativeSignal", vm.ToValue(s))
	_ = obj.Set("aborted", s.Aborted())
	if s.Aborted() {
		_ = obj.Set("reason", s.Reason())
	}
	_ = obj.Set("throwIfAborted", func(call goja.FunctionCall) goja.Value {
		if reason := s.ThrowIfAborted(); reason != nil {
			panic(vm.ToValue(reason))
		}
		return goja.Undefined()
	})
	var listeners []goja.Callable
	_ = obj.Set("addEventListener", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() != "abort" {
			return goja.Undefined()
		}
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			return goja.Undefined()
		}
		listeners = append(listeners, fn)
		s.AddEventListener(func(reason interface{}) {
			_ = obj.Set("aborted", true)
			_ = obj.Set("reason", reason)
			_, _ = fn(goja.Undefined(), vm.ToValue(reason))
		})
		return goja.Undefined()
	})
	return obj
}

func installAbort(vm *goja.Runtime, env *Env) error {
	ctor := func(call goja.ConstructorCall) *goja.Object {
		c := NewAbortController()
		obj := call.This
		_ = obj.Set("signal", newAbortSignalObject(vm, c.Signal()))
		_ = obj.Set("abort", func(call goja.FunctionCall) goja.Value {
			var reason interface{}
			if len(call.Arguments) > 0 {
				reason = call.Argument(0).Export()
			}
			c.Abort(reason)
			return goja.Undefined()
		})
		return nil
	}
	if err := vm.Set("AbortController", ctor); err != nil {
		return err
	}

	abortSignalObj := vm.NewObject()
	_ = abortSignalObj.Set("timeout", func(call goja.FunctionCall) goja.Value {
		ms := call.Argument(0).ToInteger()
		sched := loopTimerAdapter{loop: env.Loop}
		s := TimeoutSignal(ms, sched)
		return newAbortSignalObject(vm, s)
	})
	return vm.Set("AbortSignal", abortSignalObj)
}

// loopTimerAdapter adapts eventloop.Loop's (delay, interval time.Duration)
// AddTimer to webapi's millisecond-based TimerScheduler interface.
type loopTimerAdapter struct {
	loop *eventloop.Loop
}

func (a loopTimerAdapter) AddTimer(delayMs int64, callback func()) {
	a.loop.AddTimer(time.Duration(delayMs)*time.Millisecond, 0, callback)
}
