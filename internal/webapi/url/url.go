// Package url wraps net/url with the WHATWG-flavored getters, setters, and
// re-serialization behavior the URL and URLSearchParams globals need
// (spec.md §4.7). Kept goja-free so it can be tested in isolation; the
// webapi package binds it to the runtime.
package url

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// URL mirrors the WHATWG URL object's getter surface.
type URL struct {
	u *url.URL
}

// Parse parses input, resolving it against base when input is relative.
func Parse(input string, base string) (*URL, error) {
	if base != "" {
		baseURL, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		ref, err := url.Parse(input)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		return &URL{u: baseURL.ResolveReference(ref)}, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("invalid URL: %q is not absolute and no base was given", input)
	}
	return &URL{u: u}, nil
}

func (p *URL) Href() string     { return p.u.String() }
func (p *URL) Protocol() string { return p.u.Scheme + ":" }
func (p *URL) Username() string { return p.u.User.Username() }
func (p *URL) Password() string {
	pw, _ := p.u.User.Password()
	return pw
}
func (p *URL) Host() string     { return p.u.Host }
func (p *URL) Hostname() string { return p.u.Hostname() }
func (p *URL) Port() string     { return p.u.Port() }
func (p *URL) Pathname() string { return p.u.EscapedPath() }
func (p *URL) Search() string {
	if p.u.RawQuery == "" {
		return ""
	}
	return "?" + p.u.RawQuery
}
func (p *URL) Hash() string {
	if p.u.Fragment == "" {
		return ""
	}
	return "#" + p.u.EscapedFragment()
}
func (p *URL) Origin() string {
	if p.u.Scheme == "" || p.u.Host == "" {
		return "null"
	}
	return p.u.Scheme + "://" + p.u.Host
}
func (p *URL) SearchParams() *SearchParams {
	return ParseSearchParams(p.u.RawQuery)
}

// SetPathname sets the path, re-escaping it.
func (p *URL) SetPathname(v string) { p.u.Path = v }

// SetSearch sets the query string; a leading "?" is stripped if present.
func (p *URL) SetSearch(v string) { p.u.RawQuery = strings.TrimPrefix(v, "?") }

// SetHash sets the fragment; a leading "#" is stripped if present.
func (p *URL) SetHash(v string) { p.u.Fragment = strings.TrimPrefix(v, "#") }

// SetPort sets the port. Invalid (non-numeric, out of range) ports are
// silently ignored per spec.md §4.7.
func (p *URL) SetPort(v string) {
	if v == "" {
		p.u.Host = p.u.Hostname()
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 65535 {
		return
	}
	p.u.Host = fmt.Sprintf("%s:%d", p.u.Hostname(), n)
}

// SetHostname sets the host, preserving any existing port.
func (p *URL) SetHostname(v string) {
	if port := p.u.Port(); port != "" {
		p.u.Host = fmt.Sprintf("%s:%s", v, port)
		return
	}
	p.u.Host = v
}

// pairEntry is one (name, value) entry in URLSearchParams, preserving
// insertion order since append semantics depend on it.
type pairEntry struct {
	name  string
	value string
}

// SearchParams mirrors URLSearchParams.
type SearchParams struct {
	entries []pairEntry
}

// ParseSearchParams parses a query string (with or without leading "?").
func ParseSearchParams(raw string) *SearchParams {
	raw = strings.TrimPrefix(raw, "?")
	sp := &SearchParams{}
	if raw == "" {
		return sp
	}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name, _ := url.QueryUnescape(kv[0])
		value := ""
		if len(kv) == 2 {
			value, _ = url.QueryUnescape(kv[1])
		}
		sp.entries = append(sp.entries, pairEntry{name: name, value: value})
	}
	return sp
}

func (sp *SearchParams) Get(name string) (string, bool) {
	for _, e := range sp.entries {
		if e.name == name {
			return e.value, true
		}
	}
	return "", false
}

func (sp *SearchParams) GetAll(name string) []string {
	var out []string
	for _, e := range sp.entries {
		if e.name == name {
			out = append(out, e.value)
		}
	}
	return out
}

func (sp *SearchParams) Has(name string) bool {
	_, ok := sp.Get(name)
	return ok
}

func (sp *SearchParams) Append(name, value string) {
	sp.entries = append(sp.entries, pairEntry{name: name, value: value})
}

// Set replaces all existing entries for name with a single entry, matching
// the position of the first existing occurrence.
func (sp *SearchParams) Set(name, value string) {
	found := false
	out := sp.entries[:0]
	for _, e := range sp.entries {
		if e.name == name {
			if !found {
				out = append(out, pairEntry{name: name, value: value})
				found = true
			}
			continue
		}
		out = append(out, e)
	}
	sp.entries = out
	if !found {
		sp.entries = append(sp.entries, pairEntry{name: name, value: value})
	}
}

func (sp *SearchParams) Delete(name string) {
	out := sp.entries[:0]
	for _, e := range sp.entries {
		if e.name != name {
			out = append(out, e)
		}
	}
	sp.entries = out
}

// Entries returns all (name, value) pairs in insertion order.
func (sp *SearchParams) Entries() [][2]string {
	out := make([][2]string, len(sp.entries))
	for i, e := range sp.entries {
		out[i] = [2]string{e.name, e.value}
	}
	return out
}

func (sp *SearchParams) String() string {
	var sb strings.Builder
	for i, e := range sp.entries {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(e.name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(e.value))
	}
	return sb.String()
}
