// Package webapi installs the Web Platform API surface (spec.md §4.7) onto
// a tenant's engine.Runtime. Every installer follows the teacher's pattern
// of building a plain goja.Object and attaching closures with
// obj.Set("method", func(call goja.FunctionCall) goja.Value {...}) rather
// than leaning on goja's reflection-based struct wrapping, so argument and
// return conversions stay explicit and auditable.
package webapi

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/eventloop"
	"github.com/gleicon/nano/internal/webapi/textcodec"
	weburl "github.com/gleicon/nano/internal/webapi/url"
	"github.com/gleicon/nano/internal/webapi/webcrypto"
)

// Env carries everything an installer needs beyond the raw *goja.Runtime:
// the event loop driving timers/fetch, the fetch table for posting
// completions, and the per-tenant stream byte quota.
type Env struct {
	Loop                *eventloop.Loop
	FetchTable          *engine.FetchTable
	MaxStreamBufferBytes int64
	TenantEnv           map[string]string
	Fetcher             Fetcher
}

// Install attaches every Web Platform global onto rt's runtime.
func Install(rt *engine.Runtime, env *Env) error {
	vm := rt.Goja()
	installers := []func(*goja.Runtime, *Env) error{
		installConsole,
		installBase64,
		installTextCodec,
		installURL,
		installCrypto,
		installHeaders,
		installRequestResponse,
		installBlobFormData,
		installAbort,
		installTimers,
		installStreams,
		installTextStreams,
		installFetch,
	}
	for _, install := range installers {
		if err := install(vm, env); err != nil {
			return err
		}
	}
	if err := installStructuredClone(vm, rt); err != nil {
		return err
	}
	return installEnvObject(vm, env)
}

// installEnvObject builds the frozen-property env object for a tenant,
// per spec.md §4.4: one plain-prototype object with one property per
// (key, value) pair in the tenant's config-declared env map.
func installEnvObject(vm *goja.Runtime, env *Env) error {
	obj := vm.NewObject()
	for k, v := range env.TenantEnv {
		if err := obj.Set(k, v); err != nil {
			return fmt.Errorf("set env.%s: %w", k, err)
		}
		if err := obj.DefineDataProperty(k, vm.ToValue(v), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE); err != nil {
			return fmt.Errorf("freeze env.%s: %w", k, err)
		}
	}
	return vm.Set("__nano_env__", obj)
}

func installConsole(vm *goja.Runtime, env *Env) error {
	console := vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		fmt.Println(FormatConsoleArgs(vm, call.Arguments))
		return goja.Undefined()
	}
	errFn := func(call goja.FunctionCall) goja.Value {
		fmt.Println(FormatConsoleArgs(vm, call.Arguments))
		return goja.Undefined()
	}
	_ = console.Set("log", logFn)
	_ = console.Set("info", logFn)
	_ = console.Set("debug", logFn)
	_ = console.Set("warn", errFn)
	_ = console.Set("error", errFn)
	return vm.Set("console", console)
}

func installBase64(vm *goja.Runtime, env *Env) error {
	atob := func(call goja.FunctionCall) goja.Value {
		s := call.Argument(0).String()
		decoded, err := Atob(s)
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		return vm.ToValue(decoded)
	}
	btoa := func(call goja.FunctionCall) goja.Value {
		s := call.Argument(0).String()
		encoded, err := Btoa(s)
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		return vm.ToValue(encoded)
	}
	if err := vm.Set("atob", atob); err != nil {
		return err
	}
	return vm.Set("btoa", btoa)
}

func bytesFromJS(vm *goja.Runtime, v goja.Value) []byte {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if ab, ok := v.Export().(goja.ArrayBuffer); ok {
		return ab.Bytes()
	}
	obj := v.ToObject(vm)
	if obj != nil {
		if buf := obj.Get("buffer"); buf != nil && !goja.IsUndefined(buf) {
			if ab, ok := buf.Export().(goja.ArrayBuffer); ok {
				return ab.Bytes()
			}
		}
	}
	return []byte(v.String())
}

func installTextCodec(vm *goja.Runtime, env *Env) error {
	encoderCtor := func(call goja.ConstructorCall) *goja.Object {
		obj := call.This
		_ = obj.Set("encoding", "utf-8")
		_ = obj.Set("encode", func(call goja.FunctionCall) goja.Value {
			s := call.Argument(0).String()
			return vm.ToValue(vm.NewArrayBuffer(textcodec.Encode(s)))
		})
		_ = obj.Set("encodeInto", func(call goja.FunctionCall) goja.Value {
			s := call.Argument(0).String()
			dest := bytesFromJS(vm, call.Argument(1))
			res := textcodec.EncodeInto(s, dest)
			out := vm.NewObject()
			_ = out.Set("read", res.Read)
			_ = out.Set("written", res.Written)
			return out
		})
		return nil
	}
	if err := vm.Set("TextEncoder", encoderCtor); err != nil {
		return err
	}

	decoderCtor := func(call goja.ConstructorCall) *goja.Object {
		label := ""
		if len(call.Arguments) > 0 {
			label = call.Argument(0).String()
		}
		fatal, ignoreBOM := false, false
		if len(call.Arguments) > 1 {
			opts := call.Argument(1).ToObject(vm)
			if v := opts.Get("fatal"); v != nil {
				fatal = v.ToBoolean()
			}
			if v := opts.Get("ignoreBOM"); v != nil {
				ignoreBOM = v.ToBoolean()
			}
		}
		dec := textcodec.NewDecoder(label, fatal, ignoreBOM)
		obj := call.This
		_ = obj.Set("encoding", dec.Label)
		_ = obj.Set("fatal", dec.Fatal)
		_ = obj.Set("decode", func(call goja.FunctionCall) goja.Value {
			data := bytesFromJS(vm, call.Argument(0))
			s, err := dec.Decode(data)
			if err != nil {
				panic(vm.NewTypeError(err.Error()))
			}
			return vm.ToValue(s)
		})
		return nil
	}
	return vm.Set("TextDecoder", decoderCtor)
}

func installURL(vm *goja.Runtime, env *Env) error {
	newURLObject := func(u *weburl.URL) *goja.Object {
		obj := vm.NewObject()
		_ = obj.Set("href", u.Href())
		_ = obj.Set("origin", u.Origin())
		_ = obj.Set("protocol", u.Protocol())
		_ = obj.Set("username", u.Username())
		_ = obj.Set("password", u.Password())
		_ = obj.Set("host", u.Host())
		_ = obj.Set("hostname", u.Hostname())
		_ = obj.Set("port", u.Port())
		_ = obj.Set("pathname", u.Pathname())
		_ = obj.Set("search", u.Search())
		_ = obj.Set("hash", u.Hash())
		_ = obj.Set("searchParams", newSearchParamsObject(vm, u.SearchParams()))
		_ = obj.Set("toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(u.Href()) })
		return obj
	}

	ctor := func(call goja.ConstructorCall) *goja.Object {
		input := call.Argument(0).String()
		base := ""
		if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
			base = call.Argument(1).String()
		}
		u, err := weburl.Parse(input, base)
		if err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		return newURLObject(u)
	}
	if err := vm.Set("URL", ctor); err != nil {
		return err
	}

	spCtor := func(call goja.ConstructorCall) *goja.Object {
		raw := ""
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Argument(0)) {
			raw = call.Argument(0).String()
		}
		return newSearchParamsObject(vm, weburl.ParseSearchParams(raw))
	}
	return vm.Set("URLSearchParams", spCtor)
}

func newSearchParamsObject(vm *goja.Runtime, sp *weburl.SearchParams) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := sp.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = obj.Set("getAll", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(sp.GetAll(call.Argument(0).String()))
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(sp.Has(call.Argument(0).String()))
	})
	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		sp.Set(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("append", func(call goja.FunctionCall) goja.Value {
		sp.Append(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		sp.Delete(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = obj.Set("toString", func(goja.FunctionCall) goja.Value { return vm.ToValue(sp.String()) })
	return obj
}

func installCrypto(vm *goja.Runtime, env *Env) error {
	crypto := vm.NewObject()
	_ = crypto.Set("randomUUID", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(webcrypto.RandomUUID())
	})
	_ = crypto.Set("getRandomValues", func(call goja.FunctionCall) goja.Value {
		buf := bytesFromJS(vm, call.Argument(0))
		if err := webcrypto.GetRandomValues(buf); err != nil {
			panic(vm.NewGoError(err))
		}
		return call.Argument(0)
	})

	subtle := vm.NewObject()
	_ = subtle.Set("digest", func(call goja.FunctionCall) goja.Value {
		algo := algoName(vm, call.Argument(0))
		data := bytesFromJS(vm, call.Argument(1))
		promise, resolve, reject := vm.NewPromise()
		env.Loop.RegisterTask()
		go func() {
			sum, err := webcrypto.Digest(algo, data)
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if err != nil {
						reject(vm.NewGoError(err))
						return
					}
					resolve(vm.NewArrayBuffer(sum))
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = subtle.Set("sign", func(call goja.FunctionCall) goja.Value {
		algo := algoName(vm, call.Argument(0))
		key := bytesFromJS(vm, call.Argument(1))
		data := bytesFromJS(vm, call.Argument(2))
		promise, resolve, reject := vm.NewPromise()
		env.Loop.RegisterTask()
		go func() {
			sig, err := webcrypto.Sign(algo, key, data)
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if err != nil {
						reject(vm.NewGoError(err))
						return
					}
					resolve(vm.NewArrayBuffer(sig))
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = subtle.Set("verify", func(call goja.FunctionCall) goja.Value {
		algo := algoName(vm, call.Argument(0))
		key := bytesFromJS(vm, call.Argument(1))
		sig := bytesFromJS(vm, call.Argument(2))
		data := bytesFromJS(vm, call.Argument(3))
		promise, resolve, reject := vm.NewPromise()
		env.Loop.RegisterTask()
		go func() {
			ok, err := webcrypto.Verify(algo, key, data, sig)
			env.Loop.PostCompletion(eventloop.CompletedTask{
				Resolve: func() {
					if err != nil {
						reject(vm.NewGoError(err))
						return
					}
					resolve(ok)
				},
			})
		}()
		return vm.ToValue(promise)
	})
	_ = crypto.Set("subtle", subtle)
	return vm.Set("crypto", crypto)
}

// algoName accepts either a bare algorithm string ("SHA-256") or a
// {name, hash} dict, per spec.md §4.7's crypto.subtle contract.
func algoName(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	if obj, ok := v.(*goja.Object); ok {
		if hash := obj.Get("hash"); hash != nil && !goja.IsUndefined(hash) {
			return algoName(vm, hash)
		}
		if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
			if name.String() == "HMAC" {
				return "SHA-256"
			}
		}
	}
	return v.String()
}

// installStructuredClone wires the global structuredClone(x) function onto
// engine.Runtime's cycle-safe deep-copy (spec.md §8).
func installStructuredClone(vm *goja.Runtime, rt *engine.Runtime) error {
	return vm.Set("structuredClone", func(call goja.FunctionCall) goja.Value {
		cloned, err := rt.StructuredClone(call.Argument(0))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return cloned
	})
}
