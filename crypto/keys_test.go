package crypto

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Bytes() != addr.Bytes() {
		t.Fatalf("address payload did not round-trip")
	}
	if decoded.Prefix() != StoryPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestNewAddressRejectsBadLength(t *testing.T) {
	if _, err := NewAddress(StoryPrefix, make([]byte, 19)); err == nil {
		t.Fatalf("expected length check to fail")
	}
	if _, err := NewAddress(StoryPrefix, make([]byte, 21)); err == nil {
		t.Fatalf("expected length check to fail")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.PubKey().Address() != key.PubKey().Address() {
		t.Fatalf("restored key derives a different address")
	}
}
