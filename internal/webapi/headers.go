package webapi

import "strings"

// Headers is a plain Go model of the Headers web API (spec.md §4.7):
// ordered pairs, case-insensitive names, duplicates preserved on Append.
// The goja binding in install.go wraps this with getter/method plumbing.
type Headers struct {
	pairs [][2]string
}

// NewHeaders builds a Headers from an ordered list of (name, value) pairs,
// e.g. parsed from a Headers instance, a plain object, or a sequence of
// pairs per the Request/Response constructors' `init.headers` contract.
func NewHeaders(pairs [][2]string) *Headers {
	h := &Headers{}
	for _, p := range pairs {
		h.Append(p[0], p[1])
	}
	return h
}

func (h *Headers) Append(name, value string) {
	h.pairs = append(h.pairs, [2]string{strings.ToLower(name), value})
}

// Set removes any existing entries for name and inserts a single one in
// their place (at the position of the first match, or at the end if none).
func (h *Headers) Set(name, value string) {
	name = strings.ToLower(name)
	out := h.pairs[:0]
	inserted := false
	for _, p := range h.pairs {
		if p[0] == name {
			if !inserted {
				out = append(out, [2]string{name, value})
				inserted = true
			}
			continue
		}
		out = append(out, p)
	}
	h.pairs = out
	if !inserted {
		h.pairs = append(h.pairs, [2]string{name, value})
	}
}

func (h *Headers) Delete(name string) {
	name = strings.ToLower(name)
	out := h.pairs[:0]
	for _, p := range h.pairs {
		if p[0] != name {
			out = append(out, p)
		}
	}
	h.pairs = out
}

// Get returns the first value for name joined with any subsequent
// duplicates by ", " (the standard Headers.get behavior), or "" if absent.
func (h *Headers) Get(name string) (string, bool) {
	name = strings.ToLower(name)
	var vals []string
	for _, p := range h.pairs {
		if p[0] == name {
			vals = append(vals, p[1])
		}
	}
	if len(vals) == 0 {
		return "", false
	}
	return strings.Join(vals, ", "), true
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Entries returns every (name, value) pair in insertion order.
func (h *Headers) Entries() [][2]string {
	out := make([][2]string, len(h.pairs))
	copy(out, h.pairs)
	return out
}

// Clone returns an independent copy, used when constructing a Response from
// an existing Request/Response's headers.
func (h *Headers) Clone() *Headers {
	return NewHeaders(h.Entries())
}
