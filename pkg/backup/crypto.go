package backup

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/forest6511/credsafe/pkg/crypto"
)

const (
	// SaltLength is the length of the backup salt in bytes.
	SaltLength = 32

	// KeyLength is the length of the derived keys in bytes (256 bits).
	KeyLength = 32
)

// Accepted Argon2id cost bounds when opening a backup.
const (
	MinMemory  = 8 * 1024
	MaxMemory  = 1024 * 1024
	MaxTime    = 10
	MinSaltLen = 16
)

// HKDF info strings for key derivation.
const (
	hkdfInfoEncryption = "credsafe/backup/encryption/v1"
	hkdfInfoMAC        = "credsafe/backup/mac/v1"
)

// KDFParams records how the passphrase was stretched.
type KDFParams struct {
	Salt    []byte `json:"salt"`
	Memory  uint32 `json:"memory"`
	Time    uint32 `json:"time"`
	Threads uint8  `json:"threads"`
}

// DefaultKDF returns the default Argon2id parameters with a fresh salt.
func DefaultKDF() (KDFParams, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return KDFParams{}, err
	}
	return KDFParams{
		Salt:    salt,
		Memory:  crypto.Argon2Memory,
		Time:    crypto.Argon2Time,
		Threads: crypto.Argon2Threads,
	}, nil
}

// Validate rejects parameters that are too weak or too costly to run.
func (p KDFParams) Validate() error {
	switch {
	case len(p.Salt) < MinSaltLen:
		return fmt.Errorf("%w: salt of %d bytes", ErrInvalidKDF, len(p.Salt))
	case p.Memory < MinMemory || p.Memory > MaxMemory:
		return fmt.Errorf("%w: memory %d KiB", ErrInvalidKDF, p.Memory)
	case p.Time < 1 || p.Time > MaxTime:
		return fmt.Errorf("%w: time %d", ErrInvalidKDF, p.Time)
	case p.Threads < 1:
		return fmt.Errorf("%w: threads %d", ErrInvalidKDF, p.Threads)
	}
	return nil
}

// GenerateSalt generates a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("backup: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveBackupKeys derives separate encryption and MAC keys from a
// passphrase. The caller must wipe both.
func DeriveBackupKeys(password []byte, p KDFParams) (encKey, macKey []byte, err error) {
	if len(password) == 0 {
		return nil, nil, ErrEmptyPassword
	}

	secret := crypto.DeriveKeyWithParams(password, p.Salt, p.Time, p.Memory, p.Threads)
	defer crypto.SecureWipe(secret)

	encKey, err = deriveHKDF(secret, hkdfInfoEncryption)
	if err != nil {
		return nil, nil, fmt.Errorf("backup: failed to derive encryption key: %w", err)
	}
	macKey, err = deriveHKDF(secret, hkdfInfoMAC)
	if err != nil {
		crypto.SecureWipe(encKey)
		return nil, nil, fmt.Errorf("backup: failed to derive MAC key: %w", err)
	}
	return encKey, macKey, nil
}

// deriveHKDF derives a key using HKDF-SHA256.
func deriveHKDF(secret []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// macInput frames every envelope field except the MAC itself. Each part is
// prefixed with its 4-byte big-endian length.
func macInput(e *Envelope) []byte {
	parts := [][]byte{
		[]byte(e.Format),
		[]byte(strconv.Itoa(e.Version)),
		[]byte(e.ID),
		[]byte(e.CreatedAt.UTC().Format(time.RFC3339Nano)),
		e.KDF.Salt,
		[]byte(strconv.FormatUint(uint64(e.KDF.Memory), 10)),
		[]byte(strconv.FormatUint(uint64(e.KDF.Time), 10)),
		[]byte(strconv.FormatUint(uint64(e.KDF.Threads), 10)),
		e.Nonce,
		e.Ciphertext,
	}

	var buf []byte
	var size [4]byte
	for _, p := range parts {
		binary.BigEndian.PutUint32(size[:], uint32(len(p)))
		buf = append(buf, size[:]...)
		buf = append(buf, p...)
	}
	return buf
}

// ComputeHMAC computes HMAC-SHA256 over the given data.
func ComputeHMAC(data, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// VerifyHMAC verifies the HMAC-SHA256 of the given data in constant time.
func VerifyHMAC(data, expectedMAC, key []byte) bool {
	return hmac.Equal(ComputeHMAC(data, key), expectedMAC)
}
