package webapi

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/webapi/streams"
)

const defaultHighWaterMark = 1 << 16 // 64KiB, a reasonable default queuing threshold absent an explicit strategy

func highWaterMarkFromStrategy(vm *goja.Runtime, v goja.Value) int64 {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return defaultHighWaterMark
	}
	obj := v.ToObject(vm)
	if hwm := obj.Get("highWaterMark"); hwm != nil && !goja.IsUndefined(hwm) {
		return hwm.ToInteger()
	}
	return defaultHighWaterMark
}

func jsCallbackToGo(vm *goja.Runtime, v goja.Value) func(...goja.Value) (goja.Value, error) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil
	}
	return func(args ...goja.Value) (goja.Value, error) {
		return fn(goja.Undefined(), args...)
	}
}

func newReadableControllerObject(vm *goja.Runtime, c *streams.Controller) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("enqueue", func(call goja.FunctionCall) goja.Value {
		chunk := fromJSChunk(call.Argument(0))
		if err := c.Enqueue(chunk); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = obj.Set("close", func(goja.FunctionCall) goja.Value {
		_ = c.Close()
		return goja.Undefined()
	})
	_ = obj.Set("error", func(call goja.FunctionCall) goja.Value {
		_ = c.Error(fmt.Errorf("%s", call.Argument(0).String()))
		return goja.Undefined()
	})
	_ = obj.DefineAccessorProperty("desiredSize", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(c.DesiredSize())
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return obj
}

func nativeWritableStream(vm *goja.Runtime, v goja.Value) *streams.WritableStream {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	native := obj.Get("__native")
	if native == nil || goja.IsUndefined(native) {
		return nil
	}
	ws, _ := native.Export().(*streams.WritableStream)
	return ws
}

// nativeReadableStream recovers the *streams.ReadableStream stashed by
// populateReadableStreamObject — used by Response(stream) construction
// (install_request.go) to bind a streaming body without draining it.
func nativeReadableStream(vm *goja.Runtime, v goja.Value) *streams.ReadableStream {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	native := obj.Get("__native")
	if native == nil || goja.IsUndefined(native) {
		return nil
	}
	rs, _ := native.Export().(*streams.ReadableStream)
	return rs
}

func fromJSChunk(v goja.Value) interface{} {
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	if ab, ok := v.Export().(goja.ArrayBuffer); ok {
		return ab.Bytes()
	}
	return v.String()
}

func toJSChunk(vm *goja.Runtime, b []byte) goja.Value {
	return vm.ToValue(vm.NewArrayBuffer(b))
}

func newReaderObject(vm *goja.Runtime, env *Env, r *streams.Reader) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("read", func(goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		env.Loop.RegisterTask()
		go func() {
			// r.Read() is pure-Go work; it may internally invoke a JS pull
			// callback synchronously (the stream's own dispatch), but the
			// settlement below — the part that builds goja values and
			// calls resolve/reject — only ever runs from the main-thread
			// drain loop, per spec.md §3/§4.2/§5.
			res := r.Read()
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if res.Err != nil {
						reject(vm.NewGoError(res.Err))
						return
					}
					out := vm.NewObject()
					_ = out.Set("done", res.Done)
					if res.Done {
						_ = out.Set("value", goja.Undefined())
					} else {
						_ = out.Set("value", toJSChunk(vm, res.Value))
					}
					resolve(out)
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = obj.Set("releaseLock", func(goja.FunctionCall) goja.Value {
		r.ReleaseLock()
		return goja.Undefined()
	})
	return obj
}

func newReadableStreamObject(vm *goja.Runtime, env *Env, rs *streams.ReadableStream) *goja.Object {
	return populateReadableStreamObject(vm, env, vm.NewObject(), rs)
}

func populateReadableStreamObject(vm *goja.Runtime, env *Env, obj *goja.Object, rs *streams.ReadableStream) *goja.Object {
	_ = obj.Set("getReader", func(goja.FunctionCall) goja.Value {
		reader, err := rs.GetReader()
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return newReaderObject(vm, env, reader)
	})
	_ = obj.Set("cancel", func(call goja.FunctionCall) goja.Value {
		var reason interface{}
		if len(call.Arguments) > 0 {
			reason = call.Argument(0).Export()
		}
		_ = rs.Cancel(reason)
		return goja.Undefined()
	})
	_ = obj.Set("tee", func(goja.FunctionCall) goja.Value {
		a, b := rs.Tee()
		return vm.ToValue([]goja.Value{
			vm.ToValue(newReadableStreamObject(vm, env, a)),
			vm.ToValue(newReadableStreamObject(vm, env, b)),
		})
	})
	_ = obj.Set("pipeTo", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		destWS := nativeWritableStream(vm, call.Argument(0))
		env.Loop.RegisterTask()
		go func() {
			var pipeErr error
			if destWS == nil {
				pipeErr = fmt.Errorf("pipeTo: destination is not a WritableStream")
			} else {
				pipeErr = streams.PipeTo(rs, destWS, streams.PipeOptions{})
			}
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if pipeErr != nil {
						reject(vm.NewGoError(pipeErr))
						return
					}
					resolve(goja.Undefined())
				},
			})
		}()
		return vm.ToValue(promise)
	})
	// Stashed so Response(stream) and bodyInit can recover the native stream.
	_ = obj.Set("__native", vm.ToValue(rs))
	return obj
}

func installStreams(vm *goja.Runtime, env *Env) error {
	rsCtor := func(call goja.ConstructorCall) *goja.Object {
		hwm := highWaterMarkFromStrategy(vm, call.Argument(1))
		var source streams.Source
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Argument(0)) {
			srcObj := call.Argument(0).ToObject(vm)
			if startFn := jsCallbackToGo(vm, srcObj.Get("start")); startFn != nil {
				source.Start = func(c *streams.Controller) error {
					_, err := startFn(vm.ToValue(newReadableControllerObject(vm, c)))
					return err
				}
			}
			if pullFn := jsCallbackToGo(vm, srcObj.Get("pull")); pullFn != nil {
				source.Pull = func(c *streams.Controller) error {
					_, err := pullFn(vm.ToValue(newReadableControllerObject(vm, c)))
					return err
				}
			}
			if cancelFn := jsCallbackToGo(vm, srcObj.Get("cancel")); cancelFn != nil {
				source.Cancel = func(reason interface{}) error {
					_, err := cancelFn(vm.ToValue(reason))
					return err
				}
			}
		}
		rs := streams.NewReadableStream(source, hwm, env.MaxStreamBufferBytes)
		if err := rs.Start(); err != nil {
			panic(vm.NewGoError(err))
		}
		populateReadableStreamObject(vm, env, call.This, rs)
		return nil
	}
	if err := vm.Set("ReadableStream", rsCtor); err != nil {
		return err
	}

	wsCtor := func(call goja.ConstructorCall) *goja.Object {
		hwm := highWaterMarkFromStrategy(vm, call.Argument(1))
		var sink streams.Sink
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Argument(0)) {
			sinkObj := call.Argument(0).ToObject(vm)
			if writeFn := jsCallbackToGo(vm, sinkObj.Get("write")); writeFn != nil {
				sink.Write = func(chunk interface{}, _ *streams.WriteController) error {
					var arg goja.Value
					if b, ok := chunk.([]byte); ok {
						arg = toJSChunk(vm, b)
					} else {
						arg = vm.ToValue(chunk)
					}
					_, err := writeFn(arg)
					return err
				}
			}
			if closeFn := jsCallbackToGo(vm, sinkObj.Get("close")); closeFn != nil {
				sink.Close = func() error { _, err := closeFn(); return err }
			}
			if abortFn := jsCallbackToGo(vm, sinkObj.Get("abort")); abortFn != nil {
				sink.Abort = func(reason interface{}) error { _, err := abortFn(vm.ToValue(reason)); return err }
			}
		}
		ws := streams.NewWritableStream(sink, hwm)
		obj := call.This
		_ = obj.Set("getWriter", func(goja.FunctionCall) goja.Value {
			writer, err := ws.GetWriter()
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return newWriterObject(vm, env, writer)
		})
		// Stashed so pipeTo can recover the native stream as its destination;
		// the JS ReadableStream objects have no pipeThrough method.
		_ = obj.Set("__native", vm.ToValue(ws))
		return nil
	}
	if err := vm.Set("WritableStream", wsCtor); err != nil {
		return err
	}

	tsCtor := func(call goja.ConstructorCall) *goja.Object {
		var transformer streams.Transformer
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Argument(0)) {
			tObj := call.Argument(0).ToObject(vm)
			if transformFn := jsCallbackToGo(vm, tObj.Get("transform")); transformFn != nil {
				transformer.Transform = func(chunk interface{}, c *streams.Controller) error {
					_, err := transformFn(vm.ToValue(chunk), vm.ToValue(newReadableControllerObject(vm, c)))
					return err
				}
			}
			if flushFn := jsCallbackToGo(vm, tObj.Get("flush")); flushFn != nil {
				transformer.Flush = func(c *streams.Controller) error {
					_, err := flushFn(vm.ToValue(newReadableControllerObject(vm, c)))
					return err
				}
			}
		}
		writableHWM := highWaterMarkFromStrategy(vm, call.Argument(1))
		readableHWM := highWaterMarkFromStrategy(vm, call.Argument(2))
		ts := streams.NewTransformStream(transformer, writableHWM, readableHWM, env.MaxStreamBufferBytes)
		populateTransformStreamObject(vm, env, call.This, ts)
		return nil
	}
	return vm.Set("TransformStream", tsCtor)
}

func populateTransformStreamObject(vm *goja.Runtime, env *Env, obj *goja.Object, ts *streams.TransformStream) *goja.Object {
	writableObj := vm.NewObject()
	_ = writableObj.Set("getWriter", func(goja.FunctionCall) goja.Value {
		writer, err := ts.Writable.GetWriter()
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return newWriterObject(vm, env, writer)
	})
	_ = writableObj.Set("__native", vm.ToValue(ts.Writable))
	_ = obj.Set("writable", writableObj)
	_ = obj.Set("readable", populateReadableStreamObject(vm, env, vm.NewObject(), ts.Readable))
	return obj
}

func installTextStreams(vm *goja.Runtime, env *Env) error {
	if err := vm.Set("TextEncoderStream", func(call goja.ConstructorCall) *goja.Object {
		ts := streams.TextEncoderTransform(defaultHighWaterMark, defaultHighWaterMark, env.MaxStreamBufferBytes)
		populateTransformStreamObject(vm, env, call.This, ts)
		return nil
	}); err != nil {
		return err
	}
	return vm.Set("TextDecoderStream", func(call goja.ConstructorCall) *goja.Object {
		ts := streams.TextDecoderTransform(defaultHighWaterMark, defaultHighWaterMark, env.MaxStreamBufferBytes)
		populateTransformStreamObject(vm, env, call.This, ts)
		return nil
	})
}

func newWriterObject(vm *goja.Runtime, env *Env, w *streams.Writer) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("write", func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		chunk := fromJSChunk(call.Argument(0))
		env.Loop.RegisterTask()
		go func() {
			err := w.Write(chunk)
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if err != nil {
						reject(vm.NewGoError(err))
						return
					}
					resolve(goja.Undefined())
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = obj.Set("close", func(goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()
		env.Loop.RegisterTask()
		go func() {
			err := w.Close()
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if err != nil {
						reject(vm.NewGoError(err))
						return
					}
					resolve(goja.Undefined())
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = obj.Set("abort", func(call goja.FunctionCall) goja.Value {
		var reason interface{}
		if len(call.Arguments) > 0 {
			reason = call.Argument(0).Export()
		}
		_ = w.Abort(reason)
		return goja.Undefined()
	})
	_ = obj.Set("releaseLock", func(goja.FunctionCall) goja.Value {
		w.ReleaseLock()
		return goja.Undefined()
	})
	return obj
}
