// Package webcrypto implements crypto.subtle's digest and HMAC sign/verify
// surface (spec.md §4.7) over the standard library; randomUUID uses
// google/uuid. No third-party crypto library is wired here — see DESIGN.md
// for why stdlib already covers this surface natively.
package webcrypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"

	"github.com/google/uuid"
)

// RandomUUID returns an RFC 4122 v4 UUID string.
func RandomUUID() string {
	return uuid.New().String()
}

// GetRandomValues fills dst with cryptographically random bytes in place.
func GetRandomValues(dst []byte) error {
	_, err := rand.Read(dst)
	return err
}

func newHash(algo string) (func() hash.Hash, error) {
	switch algo {
	case "SHA-1":
		return sha1.New, nil
	case "SHA-256":
		return sha256.New, nil
	case "SHA-384":
		return sha512.New384, nil
	case "SHA-512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("webcrypto: unsupported digest algorithm %q", algo)
	}
}

// Digest computes the named digest over data, mirroring
// crypto.subtle.digest(algo, data).
func Digest(algo string, data []byte) ([]byte, error) {
	newH, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	h := newH()
	h.Write(data)
	return h.Sum(nil), nil
}

// Sign computes an HMAC over data using key, with hashAlgo defaulting to
// SHA-256 per spec.md §4.7 when empty.
func Sign(hashAlgo string, key, data []byte) ([]byte, error) {
	if hashAlgo == "" {
		hashAlgo = "SHA-256"
	}
	newH, err := newHash(hashAlgo)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newH, key)
	mac.Write(data)
	return mac.Sum(nil), nil
}

// Verify recomputes the HMAC and compares it to signature in constant time.
func Verify(hashAlgo string, key, data, signature []byte) (bool, error) {
	expected, err := Sign(hashAlgo, key, data)
	if err != nil {
		return false, err
	}
	if len(expected) != len(signature) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(expected, signature) == 1, nil
}
