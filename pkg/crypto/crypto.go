// Package crypto provides the cryptographic primitives for credsafe.
//
// This package wraps the two fixed algorithms the vault uses throughout:
// SHA-256 for hashing and AES-256-GCM for authenticated encryption.
// Argon2id is used only to turn a backup passphrase into key material.
//
// # Security Features
//
//   - AES-256-GCM authenticated encryption with caller-supplied nonces
//   - Length-framed SHA-256 hashing (no field boundary ambiguity)
//   - Per-record and per-field key derivation
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	key, err := crypto.DeriveRecordKey("master", saltHex)
//	ciphertext, err := crypto.Encrypt(key, nonce, plaintext)
//	plaintext, err := crypto.Decrypt(key, nonce, ciphertext)
//	crypto.SecureWipe(key)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters following OWASP recommendations.
const (
	// Argon2Memory is the memory cost in KiB (64MB).
	Argon2Memory = 64 * 1024

	// Argon2Time is the number of iterations.
	Argon2Time = 3

	// Argon2Threads is the degree of parallelism.
	Argon2Threads = 4

	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// HashLength is the size of a SHA-256 digest.
	HashLength = sha256.Size
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrAuthenticationFailed indicates the GCM tag did not verify: wrong key or altered ciphertext.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed, wrong key or corrupted data")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// Hash returns the SHA-256 digest of the given parts.
//
// Every part is written with a 4-byte big-endian length prefix, so
// Hash([]byte("ab"), []byte("c")) and Hash([]byte("a"), []byte("bc")) differ.
func Hash(parts ...[]byte) [HashLength]byte {
	h := sha256.New()
	var size [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(size[:], uint32(len(p)))
		h.Write(size[:])
		h.Write(p)
	}
	var sum [HashLength]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// DeriveKey derives a 256-bit key from a passphrase using Argon2id.
// Only passphrase-protected backups use it; vault records use DeriveRecordKey.
func DeriveKey(password, salt []byte) []byte {
	return DeriveKeyWithParams(password, salt, Argon2Time, Argon2Memory, Argon2Threads)
}

// DeriveKeyWithParams is DeriveKey with explicit Argon2id costs, for data
// that records the parameters it was sealed with.
func DeriveKeyWithParams(password, salt []byte, time, memory uint32, threads uint8) []byte {
	return argon2.IDKey(password, salt, time, memory, threads, KeyLength)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-256-GCM under the given key and nonce.
//
// The caller owns nonce uniqueness: vault records use their random salt as
// the nonce together with keys that are unique per record and field.
// The authentication tag is appended to the ciphertext.
//
// Returns ErrInvalidKeyLength or ErrInvalidNonceLength on misuse.
func Encrypt(key, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM authenticated encryption.
//
// The authentication tag is verified before any plaintext is returned.
// If verification fails (wrong key or tampering), ErrAuthenticationFailed
// is returned; callers should surface it as a wrong password rather than
// treat it as fatal.
//
// Returns ErrInvalidKeyLength, ErrInvalidNonceLength, ErrCiphertextTooShort,
// or ErrAuthenticationFailed.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// GCM tag is 16 bytes
	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive keeps b "in use" so the writes above are not elided.
	runtime.KeepAlive(b)
}
