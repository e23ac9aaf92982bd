package webcrypto

import "testing"

func TestDigestSHA256KnownVector(t *testing.T) {
	sum, err := Digest("SHA-256", []byte("abc"))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := hexString(sum); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	key := []byte("secret")
	data := []byte("message")
	sig, err := Sign("", key, data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := Verify("", key, data, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	key := []byte("secret")
	sig, _ := Sign("", key, []byte("message"))
	sig[0] ^= 0xFF
	ok, err := Verify("", key, []byte("message"), sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected tampered signature to fail verification")
	}
}

func TestRandomUUIDFormat(t *testing.T) {
	id := RandomUUID()
	if len(id) != 36 {
		t.Fatalf("expected 36-char UUID, got %q", id)
	}
}

func hexString(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}
