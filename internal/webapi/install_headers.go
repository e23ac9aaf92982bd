package webapi

import "github.com/dop251/goja"

func pairsFromJS(vm *goja.Runtime, v goja.Value) [][2]string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj := v.ToObject(vm)
	// Array-of-pairs form: [[name, value], ...]
	if length := obj.Get("length"); length != nil && !goja.IsUndefined(length) {
		n := length.ToInteger()
		out := make([][2]string, 0, n)
		for i := int64(0); i < n; i++ {
			pair := obj.Get(itoa(i)).ToObject(vm)
			out = append(out, [2]string{pair.Get("0").String(), pair.Get("1").String()})
		}
		return out
	}
	// Plain object form: {name: value, ...}
	var out [][2]string
	for _, k := range obj.Keys() {
		out = append(out, [2]string{k, obj.Get(k).String()})
	}
	return out
}

func itoa(i int64) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func newHeadersObject(vm *goja.Runtime, h *Headers) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("append", func(call goja.FunctionCall) goja.Value {
		h.Append(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		h.Set(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		h.Delete(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := h.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(h.Has(call.Argument(0).String()))
	})
	_ = obj.Set("entries", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(h.Entries())
	})
	return obj
}

func installHeaders(vm *goja.Runtime, env *Env) error {
	ctor := func(call goja.ConstructorCall) *goja.Object {
		var init goja.Value
		if len(call.Arguments) > 0 {
			init = call.Argument(0)
		}
		h := NewHeaders(pairsFromJS(vm, init))
		return newHeadersObject(vm, h)
	}
	return vm.Set("Headers", ctor)
}
