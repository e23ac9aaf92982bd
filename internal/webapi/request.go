package webapi

// Request models the Request web API (spec.md §4.7).
type Request struct {
	URLStr  string
	Method  string
	Headers *Headers
	Body    *Body
	Signal  *AbortSignal
}

// RequestInit mirrors the constructor's init dict.
type RequestInit struct {
	Method  string
	Headers *Headers
	Body    []byte
	Mime    string
	Signal  *AbortSignal
}

// NewRequest builds a Request from a URL and init dict, defaulting method
// to GET and headers to empty, per spec.md §4.7.
func NewRequest(urlStr string, init RequestInit) *Request {
	method := init.Method
	if method == "" {
		method = "GET"
	}
	headers := init.Headers
	if headers == nil {
		headers = NewHeaders(nil)
	}
	return &Request{
		URLStr:  urlStr,
		Method:  method,
		Headers: headers,
		Body:    NewBody(init.Body, init.Mime),
		Signal:  init.Signal,
	}
}

// CloneFromRequest builds a new Request reusing another's URL/method/headers
// (used when Request(existingRequest) is passed as the constructor's input).
func CloneFromRequest(r *Request, init RequestInit) *Request {
	method := init.Method
	if method == "" {
		method = r.Method
	}
	headers := init.Headers
	if headers == nil {
		headers = r.Headers.Clone()
	}
	body := init.Body
	mime := init.Mime
	return &Request{
		URLStr:  r.URLStr,
		Method:  method,
		Headers: headers,
		Body:    NewBody(body, mime),
		Signal:  init.Signal,
	}
}
