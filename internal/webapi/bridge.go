package webapi

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/gleicon/nano/internal/webapi/streams"
)

// NewRequestValue builds the JS Request object the Request Engine passes as
// the handler's first argument (spec.md §4.9 step 3).
func NewRequestValue(vm *goja.Runtime, env *Env, req *Request) goja.Value {
	return newRequestObject(vm, env, req)
}

// ResponseData is the plain-Go rendering of a handler's returned Response,
// consumed exactly once via the native *Response stashed by
// newResponseObject — bypassing the promise-based text()/arrayBuffer()
// surface, which only exists for tenant JS. Stream is set instead of Body
// when the Response was constructed from a ReadableStream; the HTTP Front
// End reads it incrementally and writes chunked (spec.md §4.11 step 5).
type ResponseData struct {
	Status     int
	StatusText string
	Headers    [][2]string
	Body       []byte
	Stream     *streams.ReadableStream
}

// ExtractResponse reads v as a Response value returned by a tenant handler
// and renders it into plain Go data for HTTP serialization (spec.md §4.11).
func ExtractResponse(v goja.Value) (*ResponseData, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, errors.New("handler did not return a Response")
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, fmt.Errorf("handler returned a non-object value")
	}
	native := obj.Get("__nativeResponse")
	if native == nil || goja.IsUndefined(native) {
		return nil, errors.New("handler did not return a Response")
	}
	resp, ok := native.Export().(*Response)
	if !ok {
		return nil, errors.New("handler did not return a Response")
	}

	if resp.Stream != nil {
		return &ResponseData{
			Status:     resp.Status,
			StatusText: resp.StatusText,
			Headers:    resp.Headers.Entries(),
			Stream:     resp.Stream,
		}, nil
	}

	body, err := resp.Body.ArrayBuffer()
	if err != nil && !errors.Is(err, ErrBodyUsed) {
		return nil, err
	}
	return &ResponseData{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers.Entries(),
		Body:       body,
	}, nil
}
