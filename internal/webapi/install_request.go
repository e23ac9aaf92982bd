package webapi

import (
	"net/url"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/webapi/streams"
)

// bodyInit accepts the full body union spec.md §4.7 requires: string,
// Blob, ArrayBuffer, typed array, FormData, or a ReadableStream (drained
// synchronously here, since Request/Response init is itself synchronous —
// the chunked, non-draining path for a Response body is NewStreamingResponse).
func bodyInit(vm *goja.Runtime, v goja.Value) ([]byte, string) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, ""
	}
	if ab, ok := v.Export().(goja.ArrayBuffer); ok {
		return ab.Bytes(), "application/octet-stream"
	}
	if obj, ok := v.(*goja.Object); ok {
		if blobVal := obj.Get("__nativeBlob"); blobVal != nil && !goja.IsUndefined(blobVal) {
			if b, ok := blobVal.Export().(*Blob); ok {
				return b.ArrayBuffer(), b.Type()
			}
		}
		if fdVal := obj.Get("__nativeFormData"); fdVal != nil && !goja.IsUndefined(fdVal) {
			if fd, ok := fdVal.Export().(*FormData); ok {
				return encodeFormData(fd)
			}
		}
		if rs := nativeReadableStream(vm, obj); rs != nil {
			data, err := drainReadableStream(rs)
			if err == nil {
				return data, "application/octet-stream"
			}
		}
		if buf := obj.Get("buffer"); buf != nil && !goja.IsUndefined(buf) {
			if ab, ok := buf.Export().(goja.ArrayBuffer); ok {
				return ab.Bytes(), "application/octet-stream"
			}
		}
	}
	return []byte(v.String()), "text/plain;charset=UTF-8"
}

// encodeFormData renders a FormData as application/x-www-form-urlencoded,
// the counterpart of Body.FormData()'s ParseFormURLEncoded. File entries
// carry no bytes over this encoding and are skipped, matching the browser
// multipart encoding being out of scope here.
func encodeFormData(fd *FormData) ([]byte, string) {
	values := url.Values{}
	for _, e := range fd.Entries() {
		if s, ok := e.Value.(string); ok {
			values.Add(e.Name, s)
		}
	}
	return []byte(values.Encode()), "application/x-www-form-urlencoded;charset=UTF-8"
}

// drainReadableStream reads a ReadableStream to completion on the calling
// goroutine. Safe to call synchronously from the tenant's main thread (it
// spawns no goroutine of its own), which is the only place bodyInit runs.
func drainReadableStream(rs *streams.ReadableStream) ([]byte, error) {
	reader, err := rs.GetReader()
	if err != nil {
		return nil, err
	}
	var out []byte
	for {
		res := reader.Read()
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Done {
			return out, nil
		}
		out = append(out, res.Value...)
	}
}

// newBodyAccessor builds the "body" getter spec.md §133 requires on both
// Request and Response: a ReadableStream view of the unconsumed body, or
// null when text()/json()/etc. consumed the body before the first access.
// The view is built on first access and cached, so later accesses return
// the same stream; building it reads the body and marks it used (spec.md
// §4.7 treats obtaining a body stream as locking the body).
func newBodyAccessor(vm *goja.Runtime, env *Env, b *Body) func(goja.FunctionCall) goja.Value {
	var cached goja.Value
	return func(goja.FunctionCall) goja.Value {
		if cached != nil {
			return cached
		}
		if b.BodyUsed() {
			cached = goja.Null()
			return cached
		}
		source := streams.Source{
			Start: func(c *streams.Controller) error {
				data, err := b.ArrayBuffer()
				if err != nil {
					return c.Error(err)
				}
				if len(data) > 0 {
					if err := c.Enqueue(data); err != nil {
						return err
					}
				}
				return c.Close()
			},
		}
		rs := streams.NewReadableStream(source, defaultHighWaterMark, env.MaxStreamBufferBytes)
		if err := rs.Start(); err != nil {
			cached = goja.Null()
			return cached
		}
		cached = vm.ToValue(newReadableStreamObject(vm, env, rs))
		return cached
	}
}

func newBodyMethods(obj *goja.Object, vm *goja.Runtime, env *Env, b *Body) {
	_ = obj.Set("text", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		s, err := b.Text()
		if err != nil {
			reject(err)
		} else {
			resolve(s)
		}
		return vm.ToValue(promise)
	})
	_ = obj.Set("json", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		v, err := b.JSON()
		if err != nil {
			reject(err)
		} else {
			resolve(v)
		}
		return vm.ToValue(promise)
	})
	_ = obj.Set("arrayBuffer", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		data, err := b.ArrayBuffer()
		if err != nil {
			reject(err)
		} else {
			resolve(vm.NewArrayBuffer(data))
		}
		return vm.ToValue(promise)
	})
	_ = obj.Set("blob", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		blob, err := b.Blob()
		if err != nil {
			reject(err)
		} else {
			resolve(newBlobObject(vm, blob))
		}
		return vm.ToValue(promise)
	})
	_ = obj.Set("formData", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		fd, err := b.FormData()
		if err != nil {
			reject(err)
		} else {
			resolve(newFormDataObject(vm, fd))
		}
		return vm.ToValue(promise)
	})
	_ = obj.DefineAccessorProperty("bodyUsed", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(b.BodyUsed())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("body", vm.ToValue(newBodyAccessor(vm, env, b)), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func newRequestObject(vm *goja.Runtime, env *Env, r *Request) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("url", r.URLStr)
	_ = obj.Set("method", r.Method)
	_ = obj.Set("headers", newHeadersObject(vm, r.Headers))
	if r.Signal != nil {
		_ = obj.Set("signal", newAbortSignalObject(vm, r.Signal))
	}
	newBodyMethods(obj, vm, env, r.Body)
	return obj
}

func installRequestResponse(vm *goja.Runtime, env *Env) error {
	reqCtor := func(call goja.ConstructorCall) *goja.Object {
		// Request(existingRequest) reuses url/method/headers the way
		// CloneFromRequest models; since a JS Request built by this
		// installer carries no native *Request backing value, that path is
		// approximated here by reading url/method/headers straight off the
		// object the same way an init dict is read.
		var urlStr, method string
		var headers goja.Value
		if len(call.Arguments) > 0 {
			arg := call.Argument(0)
			if obj, ok := arg.(*goja.Object); ok {
				if u := obj.Get("url"); u != nil && !goja.IsUndefined(u) {
					urlStr = u.String()
				} else {
					urlStr = arg.String()
				}
				if m := obj.Get("method"); m != nil && !goja.IsUndefined(m) {
					method = m.String()
				}
				headers = obj.Get("headers")
			} else {
				urlStr = arg.String()
			}
		}
		init := RequestInit{Method: method}
		if headers != nil && !goja.IsUndefined(headers) {
			init.Headers = NewHeaders(pairsFromJS(vm, headers))
		}
		if len(call.Arguments) > 1 {
			initObj := call.Argument(1).ToObject(vm)
			if m := initObj.Get("method"); m != nil && !goja.IsUndefined(m) {
				init.Method = m.String()
			}
			if h := initObj.Get("headers"); h != nil && !goja.IsUndefined(h) {
				init.Headers = NewHeaders(pairsFromJS(vm, h))
			}
			if b := initObj.Get("body"); b != nil && !goja.IsUndefined(b) {
				init.Body, init.Mime = bodyInit(vm, b)
			}
		}
		return newRequestObject(vm, env, NewRequest(urlStr, init))
	}
	if err := vm.Set("Request", reqCtor); err != nil {
		return err
	}

	respCtor := func(call goja.ConstructorCall) *goja.Object {
		init := ResponseInit{}
		if len(call.Arguments) > 1 {
			initObj := call.Argument(1).ToObject(vm)
			if s := initObj.Get("status"); s != nil && !goja.IsUndefined(s) {
				init.Status = int(s.ToInteger())
			}
			if st := initObj.Get("statusText"); st != nil && !goja.IsUndefined(st) {
				init.StatusText = st.String()
			}
			if h := initObj.Get("headers"); h != nil && !goja.IsUndefined(h) {
				init.Headers = NewHeaders(pairsFromJS(vm, h))
			}
		}
		// A ReadableStream body is bound without draining it, so the HTTP
		// Front End can later write it out chunked (spec.md §4.11 step 5)
		// instead of only ever serving a fully materialized body.
		if rs := nativeReadableStream(vm, call.Argument(0)); rs != nil {
			return newResponseObject(vm, env, NewStreamingResponse(rs, "", init))
		}
		body, mime := bodyInit(vm, call.Argument(0))
		resp := NewResponse(body, mime, init)
		return newResponseObject(vm, env, resp)
	}
	if err := vm.Set("Response", respCtor); err != nil {
		return err
	}
	return installResponseStatics(vm, env)
}

func newResponseObject(vm *goja.Runtime, env *Env, r *Response) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("status", r.Status)
	_ = obj.Set("statusText", r.StatusText)
	_ = obj.Set("ok", r.OK())
	_ = obj.Set("headers", newHeadersObject(vm, r.Headers))
	newBodyMethods(obj, vm, env, r.Body)
	// Stashed so the Request Engine can serialize a handler-returned
	// Response without going through the promise-based body consumers.
	_ = obj.Set("__nativeResponse", vm.ToValue(r))
	return obj
}

func installResponseStatics(vm *goja.Runtime, env *Env) error {
	responseVal := vm.Get("Response")
	responseObj, ok := responseVal.(*goja.Object)
	if !ok {
		return nil
	}
	_ = responseObj.Set("json", func(call goja.FunctionCall) goja.Value {
		value := call.Argument(0).Export()
		encoded, err := marshalJSON(value)
		if err != nil {
			panic(vm.NewGoError(err))
		}
		init := ResponseInit{}
		if len(call.Arguments) > 1 {
			initObj := call.Argument(1).ToObject(vm)
			if s := initObj.Get("status"); s != nil && !goja.IsUndefined(s) {
				init.Status = int(s.ToInteger())
			}
		}
		return newResponseObject(vm, env, JSONResponse(encoded, init))
	})
	_ = responseObj.Set("redirect", func(call goja.FunctionCall) goja.Value {
		target := call.Argument(0).String()
		status := 0
		if len(call.Arguments) > 1 {
			status = int(call.Argument(1).ToInteger())
		}
		return newResponseObject(vm, env, RedirectResponse(target, status))
	})
	return nil
}
