package webapi

import "testing"

func TestNewRequestDefaultsMethodToGET(t *testing.T) {
	r := NewRequest("https://example.com", RequestInit{})
	if r.Method != "GET" {
		t.Fatalf("expected GET, got %q", r.Method)
	}
}

func TestCloneFromRequestReusesFieldsUnlessOverridden(t *testing.T) {
	orig := NewRequest("https://example.com", RequestInit{Method: "POST", Headers: NewHeaders([][2]string{{"X-A", "1"}})})
	clone := CloneFromRequest(orig, RequestInit{})
	if clone.Method != "POST" {
		t.Fatalf("expected cloned method POST, got %q", clone.Method)
	}
	if v, ok := clone.Headers.Get("x-a"); !ok || v != "1" {
		t.Fatalf("expected cloned header preserved, got %q ok=%v", v, ok)
	}
	if clone.Headers == orig.Headers {
		t.Fatal("expected cloned headers to be a distinct instance")
	}
}

func TestReasonPhraseFallback(t *testing.T) {
	if ReasonPhrase(200) != "OK" {
		t.Fatalf("expected OK for 200")
	}
	if ReasonPhrase(999) == "" {
		t.Fatal("expected a non-empty fallback phrase")
	}
}
