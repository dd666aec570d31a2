package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SaltHexLength is the length of a hex-encoded record salt (12 bytes).
const SaltHexLength = NonceLength * 2

// ErrInvalidSalt indicates a record salt that is not 24 hex characters.
var ErrInvalidSalt = errors.New("crypto: invalid salt, must be 24 hex characters")

// fieldKeyInfo namespaces HKDF output for record fields.
const fieldKeyInfo = "credsafe/field/v1:"

// DeriveRecordKey derives the per-record encryption key.
//
// The hex salt is split at its midpoint into salt_lo and salt_hi and the key
// is Hash(salt_lo, masterKey, salt_hi). Every record therefore has its own
// key even though all records share one master key.
func DeriveRecordKey(masterKey, saltHex string) ([]byte, error) {
	if len(saltHex) != SaltHexLength {
		return nil, ErrInvalidSalt
	}
	if _, err := hex.DecodeString(saltHex); err != nil {
		return nil, ErrInvalidSalt
	}

	mid := len(saltHex) / 2
	sum := Hash([]byte(saltHex[:mid]), []byte(masterKey), []byte(saltHex[mid:]))
	return sum[:], nil
}

// DeriveFieldKey derives the AEAD key for one named field of a record.
// All fields of a record share the record salt as nonce; separate subkeys
// keep each (key, nonce) pair unique.
func DeriveFieldKey(recordKey []byte, field string) ([]byte, error) {
	if len(recordKey) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	r := hkdf.New(sha256.New, recordKey, nil, []byte(fieldKeyInfo+field))
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DecodeSalt decodes a hex record salt into the 12-byte AEAD nonce.
func DecodeSalt(saltHex string) ([]byte, error) {
	if len(saltHex) != SaltHexLength {
		return nil, ErrInvalidSalt
	}
	nonce, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, ErrInvalidSalt
	}
	return nonce, nil
}
