package webapi

import "testing"

func TestHeadersAppendPreservesDuplicates(t *testing.T) {
	h := NewHeaders(nil)
	h.Append("X-Foo", "1")
	h.Append("x-foo", "2")
	got, ok := h.Get("X-FOO")
	if !ok || got != "1, 2" {
		t.Fatalf("expected joined duplicates, got %q ok=%v", got, ok)
	}
}

func TestHeadersSetReplacesAll(t *testing.T) {
	h := NewHeaders(nil)
	h.Append("a", "1")
	h.Append("a", "2")
	h.Set("a", "9")
	got, _ := h.Get("a")
	if got != "9" {
		t.Fatalf("expected single value 9, got %q", got)
	}
}

func TestHeadersCaseInsensitiveLookup(t *testing.T) {
	h := NewHeaders([][2]string{{"Content-Type", "text/plain"}})
	if !h.Has("content-type") {
		t.Fatal("expected case-insensitive Has to match")
	}
}
