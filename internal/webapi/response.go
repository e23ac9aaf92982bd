package webapi

import (
	"fmt"

	"github.com/gleicon/nano/internal/webapi/streams"
)

// reasonPhrases covers the status codes this runtime's examples and admin
// surface actually produce; anything else falls back to a generic phrase.
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	409: "Conflict",
	429: "Too Many Requests",
	500: "Internal Server Error",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// ReasonPhrase returns the standard reason phrase for status, or a generic
// fallback for codes this table doesn't enumerate.
func ReasonPhrase(status int) string {
	if p, ok := reasonPhrases[status]; ok {
		return p
	}
	return fmt.Sprintf("Status %d", status)
}

// Response models the Response web API (spec.md §4.7).
type Response struct {
	Status     int
	StatusText string
	Headers    *Headers
	Body       *Body
	// Stream is set instead of a materialized Body when the Response was
	// constructed directly from a ReadableStream: the HTTP Front End
	// (§4.11 step 5) reads it incrementally and writes chunked, rather
	// than buffering the whole body first.
	Stream *streams.ReadableStream
}

// ResponseInit mirrors the constructor's init dict.
type ResponseInit struct {
	Status     int
	StatusText string
	Headers    *Headers
}

// NewResponse builds a Response, defaulting status to 200 and statusText to
// the standard reason phrase, per spec.md §4.7.
func NewResponse(body []byte, mime string, init ResponseInit) *Response {
	status := init.Status
	if status == 0 {
		status = 200
	}
	statusText := init.StatusText
	if statusText == "" {
		statusText = ReasonPhrase(status)
	}
	headers := init.Headers
	if headers == nil {
		headers = NewHeaders(nil)
	}
	return &Response{
		Status:     status,
		StatusText: statusText,
		Headers:    headers,
		Body:       NewBody(body, mime),
	}
}

// NewStreamingResponse builds a Response whose body is a live ReadableStream
// instead of materialized bytes, so the HTTP Front End can write it out as
// it arrives (spec.md §4.11 step 5) rather than buffering it first. Body
// stays a usable (empty) *Body so bodyUsed/text()/etc. don't panic if a
// tenant calls them on a streaming response — that path drains nothing,
// since the bytes live in Stream, not Body.
func NewStreamingResponse(stream *streams.ReadableStream, mime string, init ResponseInit) *Response {
	resp := NewResponse(nil, mime, init)
	resp.Stream = stream
	return resp
}

func (r *Response) OK() bool { return r.Status >= 200 && r.Status <= 299 }

// JSONResponse implements the static Response.json(value, init?) factory.
func JSONResponse(encoded []byte, init ResponseInit) *Response {
	resp := NewResponse(encoded, "application/json", init)
	if !resp.Headers.Has("content-type") {
		resp.Headers.Set("Content-Type", "application/json")
	}
	return resp
}

// RedirectResponse implements the static Response.redirect(url, status?)
// factory, defaulting status to 302 per spec.md §4.7.
func RedirectResponse(url string, status int) *Response {
	if status == 0 {
		status = 302
	}
	resp := NewResponse(nil, "", ResponseInit{Status: status})
	resp.Headers.Set("Location", url)
	return resp
}
