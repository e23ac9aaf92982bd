package webapi

import (
	"context"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/engine"
	"github.com/gleicon/nano/internal/eventloop"
)

func installFetch(vm *goja.Runtime, env *Env) error {
	fetcher := env.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}

	fetchFn := func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := vm.NewPromise()

		urlStr, method, headers, body, signal := parseFetchArgs(vm, call)

		id, _ := env.FetchTable.Register()
		env.Loop.RegisterTask()

		ctx, cancel := context.WithCancel(context.Background())
		if signal != nil {
			signal.AddEventListener(func(reason interface{}) { cancel() })
		}

		go func() {
			defer cancel()
			result := fetcher.Do(ctx, method, urlStr, headers, body)
			env.FetchTable.PutResult(id, engine.FetchResult{
				Status: result.Status,
				Body:   result.Body,
				Err:    result.Err,
			})
			env.Loop.PostCompletion(eventloop.CompletedTask{
				TaskID: id,
				Resolve: func() {
					if result.Err != nil {
						reject(vm.NewGoError(result.Err))
						return
					}
					resp := NewResponse(result.Body, "", ResponseInit{Status: result.Status})
					for _, h := range result.Headers {
						resp.Headers.Append(h[0], h[1])
					}
					resolve(newResponseObject(vm, env, resp))
				},
			})
		}()

		return vm.ToValue(promise)
	}

	return vm.Set("fetch", fetchFn)
}

func parseFetchArgs(vm *goja.Runtime, call goja.FunctionCall) (urlStr, method string, headers [][2]string, body []byte, signal *AbortSignal) {
	method = "GET"
	input := call.Argument(0)
	if obj, ok := input.(*goja.Object); ok {
		if u := obj.Get("url"); u != nil && !goja.IsUndefined(u) {
			urlStr = u.String()
		}
		if m := obj.Get("method"); m != nil && !goja.IsUndefined(m) {
			method = m.String()
		}
	} else {
		urlStr = input.String()
	}

	if len(call.Arguments) > 1 {
		init := call.Argument(1).ToObject(vm)
		if m := init.Get("method"); m != nil && !goja.IsUndefined(m) {
			method = m.String()
		}
		if h := init.Get("headers"); h != nil && !goja.IsUndefined(h) {
			headers = pairsFromJS(vm, h)
		}
		if b := init.Get("body"); b != nil && !goja.IsUndefined(b) {
			body, _ = bodyInit(vm, b)
		}
		if sv := init.Get("signal"); sv != nil && !goja.IsUndefined(sv) {
			if so, ok := sv.(*goja.Object); ok {
				if ns := so.Get("__nativeSignal"); ns != nil && !goja.IsUndefined(ns) {
					if sig, ok := ns.Export().(*AbortSignal); ok {
						signal = sig
					}
				}
			}
		}
	}
	return
}
