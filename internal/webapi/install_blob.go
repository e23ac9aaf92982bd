package webapi

import "github.com/dop251/goja"

func blobPartsFromJS(vm *goja.Runtime, v goja.Value) []interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	obj := v.ToObject(vm)
	length := obj.Get("length")
	if length == nil || goja.IsUndefined(length) {
		return nil
	}
	n := length.ToInteger()
	out := make([]interface{}, 0, n)
	for i := int64(0); i < n; i++ {
		item := obj.Get(itoa(i))
		if ab, ok := item.Export().(goja.ArrayBuffer); ok {
			out = append(out, ab.Bytes())
			continue
		}
		out = append(out, item.String())
	}
	return out
}

func newBlobObject(vm *goja.Runtime, b *Blob) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("size", b.Size())
	_ = obj.Set("type", b.Type())
	_ = obj.Set("text", func(goja.FunctionCall) goja.Value {
		promise, resolve, _ := vm.NewPromise()
		resolve(b.Text())
		return vm.ToValue(promise)
	})
	_ = obj.Set("arrayBuffer", func(goja.FunctionCall) goja.Value {
		promise, resolve, _ := vm.NewPromise()
		resolve(vm.NewArrayBuffer(b.ArrayBuffer()))
		return vm.ToValue(promise)
	})
	_ = obj.Set("slice", func(call goja.FunctionCall) goja.Value {
		start, end := int64(0), b.Size()
		if len(call.Arguments) > 0 {
			start = call.Argument(0).ToInteger()
		}
		if len(call.Arguments) > 1 {
			end = call.Argument(1).ToInteger()
		}
		typ := b.Type()
		if len(call.Arguments) > 2 {
			typ = call.Argument(2).String()
		}
		return newBlobObject(vm, b.Slice(start, end, typ))
	})
	// Stashed so bodyInit (install_request.go) can bind a Blob body
	// without round-tripping it through its JS arrayBuffer() promise.
	_ = obj.Set("__nativeBlob", vm.ToValue(b))
	return obj
}

func installBlobFormData(vm *goja.Runtime, env *Env) error {
	blobCtor := func(call goja.ConstructorCall) *goja.Object {
		parts := blobPartsFromJS(vm, call.Argument(0))
		mime := ""
		if len(call.Arguments) > 1 {
			opts := call.Argument(1).ToObject(vm)
			if t := opts.Get("type"); t != nil && !goja.IsUndefined(t) {
				mime = t.String()
			}
		}
		return newBlobObject(vm, NewBlob(parts, mime))
	}
	if err := vm.Set("Blob", blobCtor); err != nil {
		return err
	}

	fileCtor := func(call goja.ConstructorCall) *goja.Object {
		parts := blobPartsFromJS(vm, call.Argument(0))
		name := call.Argument(1).String()
		mime := ""
		var lastModified int64
		if len(call.Arguments) > 2 {
			opts := call.Argument(2).ToObject(vm)
			if t := opts.Get("type"); t != nil && !goja.IsUndefined(t) {
				mime = t.String()
			}
			if lm := opts.Get("lastModified"); lm != nil && !goja.IsUndefined(lm) {
				lastModified = lm.ToInteger()
			}
		}
		f := NewFile(parts, name, mime, lastModified)
		obj := newBlobObject(vm, f.Blob)
		_ = obj.Set("name", f.Name)
		_ = obj.Set("lastModified", f.LastModified)
		return obj
	}
	return vm.Set("File", fileCtor)
}

func newFormDataObject(vm *goja.Runtime, fd *FormData) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("append", func(call goja.FunctionCall) goja.Value {
		fd.Append(call.Argument(0).String(), formValueFromJS(call.Argument(1)))
		return goja.Undefined()
	})
	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		fd.Set(call.Argument(0).String(), formValueFromJS(call.Argument(1)))
		return goja.Undefined()
	})
	_ = obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		fd.Delete(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := fd.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("getAll", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(fd.GetAll(call.Argument(0).String()))
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(fd.Has(call.Argument(0).String()))
	})
	// Stashed so bodyInit (install_request.go) can bind a FormData body.
	_ = obj.Set("__nativeFormData", vm.ToValue(fd))
	return obj
}

func formValueFromJS(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}
