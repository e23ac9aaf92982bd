package textcodec

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := Encode("héllo")
	d := NewDecoder("utf-8", false, false)
	s, err := d.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != "héllo" {
		t.Fatalf("expected héllo, got %q", s)
	}
}

func TestDecodeFatalRejectsInvalidSequence(t *testing.T) {
	d := NewDecoder("utf-8", true, false)
	if _, err := d.Decode([]byte{0xff, 0xfe}); err == nil {
		t.Fatal("expected error for invalid sequence in fatal mode")
	}
}

func TestDecodeNonFatalReplacesInvalidSequence(t *testing.T) {
	d := NewDecoder("utf-8", false, false)
	s, err := d.Decode([]byte{0xff})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != replacementChar {
		t.Fatalf("expected replacement char, got %q", s)
	}
}

func TestEncodeIntoStopsAtBoundary(t *testing.T) {
	dest := make([]byte, 3)
	res := EncodeInto("héllo", dest)
	if res.Written > 3 {
		t.Fatalf("wrote past destination: %d", res.Written)
	}
}

func TestDecodeStripsBOM(t *testing.T) {
	d := NewDecoder("utf-8", false, false)
	s, err := d.Decode([]byte{0xEF, 0xBB, 0xBF, 'h', 'i'})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s != "hi" {
		t.Fatalf("expected BOM stripped, got %q", s)
	}
}
