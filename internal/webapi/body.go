package webapi

import (
	"encoding/json"
	"errors"
	"sync"
)

// ErrBodyUsed is returned by any body consumer once the body has already
// been consumed once, per spec.md §4.7's Request/Response body contract.
var ErrBodyUsed = errors.New("body used")

// Body wraps a byte payload with the "consume once" semantics shared by
// Request and Response: text(), json(), arrayBuffer(), blob() and
// formData() all read from the same underlying bytes exactly once.
type Body struct {
	mu     sync.Mutex
	data   []byte
	used   bool
	mime   string
}

// NewBody wraps raw bytes with an optional content-type hint used when
// constructing a Blob from blob().
func NewBody(data []byte, mime string) *Body {
	return &Body{data: data, mime: mime}
}

func (b *Body) consume() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used {
		return nil, ErrBodyUsed
	}
	b.used = true
	return b.data, nil
}

func (b *Body) Text() (string, error) {
	data, err := b.consume()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *Body) JSON() (interface{}, error) {
	data, err := b.consume()
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *Body) ArrayBuffer() ([]byte, error) {
	return b.consume()
}

func (b *Body) Blob() (*Blob, error) {
	data, err := b.consume()
	if err != nil {
		return nil, err
	}
	return NewBlob([]interface{}{data}, b.mime), nil
}

func (b *Body) FormData() (*FormData, error) {
	data, err := b.consume()
	if err != nil {
		return nil, err
	}
	return ParseFormURLEncoded(string(data)), nil
}

// BodyUsed reports whether the body has already been consumed, without
// consuming it.
func (b *Body) BodyUsed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
