package webapi

import (
	"time"

	"github.com/dop251/goja"
)

func installTimers(vm *goja.Runtime, env *Env) error {
	makeSetter := func(interval bool) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(call.Argument(0))
			if !ok {
				return vm.ToValue(int64(0))
			}
			delayMs := call.Argument(1).ToInteger()
			if delayMs < 0 {
				delayMs = 0
			}
			extra := make([]goja.Value, 0)
			if len(call.Arguments) > 2 {
				extra = call.Arguments[2:]
			}
			delay := time.Duration(delayMs) * time.Millisecond
			intervalDur := time.Duration(0)
			if interval {
				intervalDur = delay
			}
			id := env.Loop.AddTimer(delay, intervalDur, func() {
				_, _ = fn(goja.Undefined(), extra...)
			})
			return vm.ToValue(id)
		}
	}
	clear := func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).ToInteger()
		env.Loop.CancelTimer(uint64(id))
		return goja.Undefined()
	}

	if err := vm.Set("setTimeout", makeSetter(false)); err != nil {
		return err
	}
	if err := vm.Set("setInterval", makeSetter(true)); err != nil {
		return err
	}
	if err := vm.Set("clearTimeout", clear); err != nil {
		return err
	}
	return vm.Set("clearInterval", clear)
}
