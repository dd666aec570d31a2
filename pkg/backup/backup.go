package backup

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/forest6511/credsafe/internal/atomicfile"
	"github.com/forest6511/credsafe/pkg/crypto"
	"github.com/forest6511/credsafe/pkg/vault"
)

// Envelope identification.
const (
	Format  = "credsafe-backup"
	Version = 1
)

// FileMode is the permission of written backup files.
const FileMode = 0600

// Envelope is the on-disk form of an encrypted export. Binary fields are
// base64 in JSON. The MAC covers every other field.
type Envelope struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	KDF        KDFParams `json:"kdf"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	MAC        []byte    `json:"mac"`
}

// Seal encrypts items under password with the default KDF parameters.
func Seal(items []vault.Fields, password []byte) (*Envelope, error) {
	kdf, err := DefaultKDF()
	if err != nil {
		return nil, err
	}
	return SealWithKDF(items, password, kdf)
}

// SealWithKDF encrypts items under password using the given parameters.
func SealWithKDF(items []vault.Fields, password []byte, kdf KDFParams) (*Envelope, error) {
	if err := kdf.Validate(); err != nil {
		return nil, err
	}
	encKey, macKey, err := DeriveBackupKeys(password, kdf)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(encKey)
	defer crypto.SecureWipe(macKey)

	if items == nil {
		items = []vault.Fields{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to encode payload: %w", err)
	}
	defer crypto.SecureWipe(payload)

	nonce := make([]byte, crypto.NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("backup: failed to generate nonce: %w", err)
	}
	ciphertext, err := crypto.Encrypt(encKey, nonce, payload)
	if err != nil {
		return nil, fmt.Errorf("backup: encryption failed: %w", err)
	}

	e := &Envelope{
		Format:     Format,
		Version:    Version,
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		KDF:        kdf,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}
	e.MAC = ComputeHMAC(macInput(e), macKey)
	return e, nil
}

// Open verifies the MAC and only then decrypts the payload.
func (e *Envelope) Open(password []byte) ([]vault.Fields, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	encKey, macKey, err := DeriveBackupKeys(password, e.KDF)
	if err != nil {
		return nil, err
	}
	defer crypto.SecureWipe(encKey)
	defer crypto.SecureWipe(macKey)

	if !VerifyHMAC(macInput(e), e.MAC, macKey) {
		return nil, ErrIntegrityFailed
	}

	plaintext, err := crypto.Decrypt(encKey, e.Nonce, e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	defer crypto.SecureWipe(plaintext)

	var items []vault.Fields
	if err := json.Unmarshal(plaintext, &items); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidFormat, err)
	}
	return items, nil
}

func (e *Envelope) check() error {
	if e.Format != Format {
		return ErrInvalidFormat
	}
	if e.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, e.Version)
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("%w: bad id", ErrInvalidFormat)
	}
	if len(e.Nonce) != crypto.NonceLength {
		return fmt.Errorf("%w: bad nonce", ErrInvalidFormat)
	}
	return e.KDF.Validate()
}

// Encode renders the envelope as indented JSON with a trailing newline.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: failed to encode envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile atomically writes the envelope to path with 0600 permissions.
func (e *Envelope) WriteFile(path string) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, FileMode)
}

// Decode parses an envelope and checks its format and version.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}

// ReadFile reads and decodes the envelope at path.
func ReadFile(path string) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read backup file: %w", err)
	}
	return Decode(data)
}

// IsEnvelope reports whether data looks like a backup envelope. It does
// not verify anything.
func IsEnvelope(data []byte) bool {
	var probe struct {
		Format string `json:"format"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Format == Format
}
