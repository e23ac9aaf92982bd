// Package textcodec implements the byte-level behavior behind TextEncoder
// and TextDecoder (spec.md §4.7), kept goja-free so it can be unit tested
// without a runtime.
package textcodec

import (
	"strings"
	"unicode/utf8"
)

// Encode turns a JS string into its UTF-8 byte representation.
func Encode(s string) []byte {
	return []byte(s)
}

// EncodeIntoResult mirrors TextEncoder.encodeInto's {read, written} pair.
type EncodeIntoResult struct {
	Read    int
	Written int
}

// EncodeInto writes as much of s's UTF-8 encoding into dest as fits,
// stopping before splitting a multi-byte rune, and reports how many UTF-16
// code units of s were consumed (approximated here as rune count, since
// textcodec operates on decoded Go strings rather than UTF-16 buffers) and
// how many bytes were written.
func EncodeInto(s string, dest []byte) EncodeIntoResult {
	var read, written int
	for _, r := range s {
		n := utf8.RuneLen(r)
		if written+n > len(dest) {
			break
		}
		utf8.EncodeRune(dest[written:], r)
		written += n
		read++
	}
	return EncodeIntoResult{Read: read, Written: written}
}

// Decoder mirrors a constructed TextDecoder(label, {fatal, ignoreBOM}).
type Decoder struct {
	Label      string
	Fatal      bool
	IgnoreBOM  bool
}

// NewDecoder defaults label to "utf-8" per spec.md §4.7.
func NewDecoder(label string, fatal, ignoreBOM bool) *Decoder {
	if label == "" {
		label = "utf-8"
	}
	return &Decoder{Label: strings.ToLower(label), Fatal: fatal, IgnoreBOM: ignoreBOM}
}

const replacementChar = "�"

// Decode converts bytes to a string. Only utf-8 (and its aliases) is
// supported, matching the Web Platform surface this runtime targets; any
// other label is accepted but treated as utf-8, since no other codec
// registry is wired.
func (d *Decoder) Decode(b []byte) (string, error) {
	if !d.IgnoreBOM {
		b = stripBOM(b)
	}
	if utf8.Valid(b) {
		return string(b), nil
	}
	if d.Fatal {
		return "", errInvalidSequence
	}
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteString(replacementChar)
			b = b[1:]
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String(), nil
}

func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

type decodeError string

func (e decodeError) Error() string { return string(e) }

const errInvalidSequence = decodeError("TextDecoder: invalid byte sequence")
