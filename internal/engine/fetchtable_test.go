package engine

import "testing"

func TestFetchTableRoundTrip(t *testing.T) {
	ft := NewFetchTable()
	id, ch := ft.Register()
	if ft.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", ft.Len())
	}
	ft.PutResult(id, FetchResult{Status: 200, Body: []byte("ok")})
	res := <-ch
	if res.Status != 200 || string(res.Body) != "ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if ft.Len() != 0 {
		t.Fatalf("expected 0 pending after delivery, got %d", ft.Len())
	}
}

func TestFetchTableForgetDropsResult(t *testing.T) {
	ft := NewFetchTable()
	id, _ := ft.Register()
	ft.Forget(id)
	ft.PutResult(id, FetchResult{Status: 200})
	if ft.Len() != 0 {
		t.Fatalf("expected 0 pending, got %d", ft.Len())
	}
}
