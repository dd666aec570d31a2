package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"
)

const testSalt = "00112233445566778899aabb"

func TestDeriveRecordKey(t *testing.T) {
	key, err := DeriveRecordKey("k1", testSalt)
	if err != nil {
		t.Fatalf("DeriveRecordKey() error = %v", err)
	}
	if len(key) != KeyLength {
		t.Fatalf("DeriveRecordKey() length = %d, want %d", len(key), KeyLength)
	}

	// salt_lo || K || salt_hi, each length-framed
	h := sha256.New()
	for _, part := range []string{"001122334455", "k1", "66778899aabb"} {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(part)))
		h.Write(size[:])
		h.Write([]byte(part))
	}
	if want := h.Sum(nil); !bytes.Equal(key, want) {
		t.Errorf("DeriveRecordKey() = %x, want %x", key, want)
	}

	other, err := DeriveRecordKey("k2", testSalt)
	if err != nil {
		t.Fatalf("DeriveRecordKey() error = %v", err)
	}
	if bytes.Equal(key, other) {
		t.Error("different master keys should derive different record keys")
	}

	otherSalt, err := DeriveRecordKey("k1", "bbaa99887766554433221100")
	if err != nil {
		t.Fatalf("DeriveRecordKey() error = %v", err)
	}
	if bytes.Equal(key, otherSalt) {
		t.Error("different salts should derive different record keys")
	}
}

func TestDeriveRecordKeyInvalidSalt(t *testing.T) {
	tests := []struct {
		name string
		salt string
	}{
		{"empty", ""},
		{"too short", "0011"},
		{"too long", testSalt + "00"},
		{"not hex", "zz112233445566778899aabb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeriveRecordKey("k", tt.salt); !errors.Is(err, ErrInvalidSalt) {
				t.Errorf("DeriveRecordKey() error = %v, want %v", err, ErrInvalidSalt)
			}
			if _, err := DecodeSalt(tt.salt); !errors.Is(err, ErrInvalidSalt) {
				t.Errorf("DecodeSalt() error = %v, want %v", err, ErrInvalidSalt)
			}
		})
	}
}

func TestDeriveFieldKey(t *testing.T) {
	recordKey, err := DeriveRecordKey("k1", testSalt)
	if err != nil {
		t.Fatalf("DeriveRecordKey() error = %v", err)
	}

	user, err := DeriveFieldKey(recordKey, "username")
	if err != nil {
		t.Fatalf("DeriveFieldKey() error = %v", err)
	}
	pass, err := DeriveFieldKey(recordKey, "password")
	if err != nil {
		t.Fatalf("DeriveFieldKey() error = %v", err)
	}

	if len(user) != KeyLength {
		t.Errorf("DeriveFieldKey() length = %d, want %d", len(user), KeyLength)
	}
	if bytes.Equal(user, pass) {
		t.Error("different fields should derive different keys")
	}
	if bytes.Equal(user, recordKey) {
		t.Error("field key should differ from record key")
	}

	if _, err := DeriveFieldKey(recordKey[:16], "username"); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("DeriveFieldKey() short key error = %v, want %v", err, ErrInvalidKeyLength)
	}
}

func TestDecodeSalt(t *testing.T) {
	nonce, err := DecodeSalt(testSalt)
	if err != nil {
		t.Fatalf("DecodeSalt() error = %v", err)
	}
	if len(nonce) != NonceLength {
		t.Errorf("DecodeSalt() length = %d, want %d", len(nonce), NonceLength)
	}
	if nonce[0] != 0x00 || nonce[11] != 0xbb {
		t.Errorf("DecodeSalt() = %x", nonce)
	}
}
