package webapi

import "testing"

func TestBodyTextConsumeOnce(t *testing.T) {
	b := NewBody([]byte("hello"), "text/plain")
	s, err := b.Text()
	if err != nil || s != "hello" {
		t.Fatalf("text: %q err=%v", s, err)
	}
	if _, err := b.Text(); err != ErrBodyUsed {
		t.Fatalf("expected ErrBodyUsed on re-consumption, got %v", err)
	}
}

func TestBodyJSON(t *testing.T) {
	b := NewBody([]byte(`{"a":1}`), "application/json")
	v, err := b.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok || m["a"].(float64) != 1 {
		t.Fatalf("unexpected decoded value: %#v", v)
	}
}

func TestResponseDefaults(t *testing.T) {
	r := NewResponse([]byte("ok"), "text/plain", ResponseInit{})
	if r.Status != 200 || r.StatusText != "OK" || !r.OK() {
		t.Fatalf("unexpected response defaults: %+v", r)
	}
}

func TestRedirectResponseDefaultsTo302(t *testing.T) {
	r := RedirectResponse("https://example.com", 0)
	if r.Status != 302 {
		t.Fatalf("expected 302, got %d", r.Status)
	}
	if loc, _ := r.Headers.Get("Location"); loc != "https://example.com" {
		t.Fatalf("unexpected location: %q", loc)
	}
}

func TestAbortControllerFiresListenersOnce(t *testing.T) {
	c := NewAbortController()
	calls := 0
	c.Signal().AddEventListener(func(reason interface{}) { calls++ })
	c.Abort("cancelled")
	c.Abort("cancelled again")
	if calls != 1 {
		t.Fatalf("expected listener fired once, got %d", calls)
	}
	if !c.Signal().Aborted() {
		t.Fatal("expected signal aborted")
	}
}

func TestBlobSliceClamps(t *testing.T) {
	b := NewBlob([]interface{}{"hello world"}, "text/plain")
	s := b.Slice(-5, 100, "text/plain")
	if s.Text() != "hello world" {
		t.Fatalf("expected clamp to full range, got %q", s.Text())
	}
}

func TestFormDataSetReplacesAll(t *testing.T) {
	fd := NewFormData()
	fd.Append("a", "1")
	fd.Append("a", "2")
	fd.Set("a", "9")
	vals := fd.GetAll("a")
	if len(vals) != 1 || vals[0] != "9" {
		t.Fatalf("expected single value 9, got %v", vals)
	}
}
