package vault

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/credsafe/pkg/crypto"
)

// tagDomain separates integrity tags from every other use of crypto.Hash.
const tagDomain = "credsafe/tag/v1"

// Field names, used for per-field key derivation and for the tag.
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldEmail    = "email"
	FieldNote     = "note"
)

// Fields holds the plaintext content of a credential.
// Email and Note are optional; the empty string means absent.
type Fields struct {
	Entry    string `json:"entry"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Record is the working form of a credential: every field is plaintext.
// Records are immutable; edits and master key changes produce new records.
type Record struct {
	salt   string
	fields Fields
	tag    string
}

// SealedRecord is the storage form of a credential. The entry label is
// plaintext; every other present field is hex-encoded AES-GCM ciphertext.
type SealedRecord struct {
	Salt     string `json:"salt"`
	Entry    string `json:"entry"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Note     string `json:"note,omitempty"`
	Tag      string `json:"tag"`
}

// NormalizeEntry returns the canonical form of an entry label: NFC with
// surrounding whitespace removed.
func NormalizeEntry(entry string) string {
	return norm.NFC.String(strings.TrimSpace(entry))
}

// NewRecord validates fields and creates a record under masterKey with a
// fresh random salt.
func NewRecord(fields Fields, masterKey string) (*Record, error) {
	salt := make([]byte, crypto.NonceLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: failed to generate salt: %w", err)
	}
	return newRecordWithSalt(hex.EncodeToString(salt), fields, masterKey)
}

func newRecordWithSalt(saltHex string, fields Fields, masterKey string) (*Record, error) {
	if _, err := crypto.DecodeSalt(saltHex); err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	fields.Entry = NormalizeEntry(fields.Entry)
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	return &Record{
		salt:   saltHex,
		fields: fields,
		tag:    computeTag(fields, masterKey),
	}, nil
}

func validateFields(f Fields) error {
	if err := validateEntry(f.Entry); err != nil {
		return err
	}
	if f.Username == "" {
		return ErrUsernameRequired
	}
	if f.Password == "" {
		return ErrPasswordRequired
	}
	for _, v := range []string{f.Username, f.Password, f.Email} {
		if len(v) > MaxValueSize {
			return fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes",
				ErrValueTooLarge, len(v), MaxValueSize)
		}
	}
	if len(f.Note) > MaxNoteSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum of %d bytes",
			ErrNoteTooLarge, len(f.Note), MaxNoteSize)
	}
	return nil
}

// validateEntry checks an already normalised entry label.
func validateEntry(entry string) error {
	if entry == "" {
		return ErrEntryRequired
	}
	if len(entry) > MaxEntryLength {
		return ErrEntryTooLong
	}
	for _, r := range entry {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return fmt.Errorf("%w: %q is not allowed", ErrEntryInvalid, r)
		}
	}
	return nil
}

// computeTag hashes the present plaintext fields and the master key.
// Every component is length-framed by crypto.Hash.
func computeTag(f Fields, masterKey string) string {
	parts := [][]byte{
		[]byte(tagDomain),
		[]byte("entry"), []byte(f.Entry),
		[]byte(FieldUsername), []byte(f.Username),
		[]byte(FieldPassword), []byte(f.Password),
	}
	if f.Email != "" {
		parts = append(parts, []byte(FieldEmail), []byte(f.Email))
	}
	if f.Note != "" {
		parts = append(parts, []byte(FieldNote), []byte(f.Note))
	}
	parts = append(parts, []byte("key"), []byte(masterKey))

	sum := crypto.Hash(parts...)
	return hex.EncodeToString(sum[:])
}

// tagsEqual compares two hex tags in constant time. Malformed input never
// compares equal.
func tagsEqual(a, b string) bool {
	ab, err := hex.DecodeString(a)
	if err != nil || len(ab) != crypto.HashLength {
		return false
	}
	bb, err := hex.DecodeString(b)
	if err != nil || len(bb) != crypto.HashLength {
		return false
	}
	return hmac.Equal(ab, bb)
}

// Entry returns the entry label.
func (r *Record) Entry() string { return r.fields.Entry }

// Username returns the username.
func (r *Record) Username() string { return r.fields.Username }

// Password returns the password.
func (r *Record) Password() string { return r.fields.Password }

// Email returns the email, or "" when absent.
func (r *Record) Email() string { return r.fields.Email }

// Note returns the note, or "" when absent.
func (r *Record) Note() string { return r.fields.Note }

// Salt returns the hex-encoded salt.
func (r *Record) Salt() string { return r.salt }

// Tag returns the hex-encoded integrity tag.
func (r *Record) Tag() string { return r.tag }

// Fields returns a copy of the plaintext fields.
func (r *Record) Fields() Fields { return r.fields }

// Edit returns a new record with changes applied on top of r. Empty values
// in changes keep the current value; the optional fields named in clear
// (FieldEmail, FieldNote) become absent. The new record gets a fresh salt
// and tag; r itself is left untouched.
func (r *Record) Edit(changes Fields, masterKey string, clear ...string) (*Record, error) {
	f := r.fields
	for _, name := range clear {
		switch name {
		case FieldEmail:
			f.Email = ""
		case FieldNote:
			f.Note = ""
		default:
			return nil, fmt.Errorf("%w: %q", ErrFieldNotClearable, name)
		}
	}
	if changes.Entry != "" {
		f.Entry = changes.Entry
	}
	if changes.Username != "" {
		f.Username = changes.Username
	}
	if changes.Password != "" {
		f.Password = changes.Password
	}
	if changes.Email != "" {
		f.Email = changes.Email
	}
	if changes.Note != "" {
		f.Note = changes.Note
	}
	return NewRecord(f, masterKey)
}

// Verify recomputes the tag under masterKey and reports ErrIntegrityViolation
// on mismatch.
func (r *Record) Verify(masterKey string) error {
	if !tagsEqual(r.tag, computeTag(r.fields, masterKey)) {
		return fmt.Errorf("%w: tag mismatch for %q", ErrIntegrityViolation, r.fields.Entry)
	}
	return nil
}

// sealField encrypts one field value. Absent values stay absent.
func sealField(recordKey, nonce []byte, name, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	fieldKey, err := crypto.DeriveFieldKey(recordKey, name)
	if err != nil {
		return "", err
	}
	defer crypto.SecureWipe(fieldKey)

	ct, err := crypto.Encrypt(fieldKey, nonce, []byte(value))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ct), nil
}

// openField decrypts one hex field. Absent values stay absent.
func openField(recordKey, nonce []byte, name, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	ct, err := hex.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not valid hex", ErrIntegrityViolation, name)
	}
	fieldKey, err := crypto.DeriveFieldKey(recordKey, name)
	if err != nil {
		return "", err
	}
	defer crypto.SecureWipe(fieldKey)

	pt, err := crypto.Decrypt(fieldKey, nonce, ct)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	return string(pt), nil
}

// Seal encrypts r under masterKey. The salt, entry and tag are copied as is.
func (r *Record) Seal(masterKey string) (*SealedRecord, error) {
	nonce, err := crypto.DecodeSalt(r.salt)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	recordKey, err := crypto.DeriveRecordKey(masterKey, r.salt)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	defer crypto.SecureWipe(recordKey)

	s := &SealedRecord{
		Salt:  r.salt,
		Entry: r.fields.Entry,
		Tag:   r.tag,
	}
	targets := []struct {
		name  string
		value string
		dst   *string
	}{
		{FieldUsername, r.fields.Username, &s.Username},
		{FieldPassword, r.fields.Password, &s.Password},
		{FieldEmail, r.fields.Email, &s.Email},
		{FieldNote, r.fields.Note, &s.Note},
	}
	for _, t := range targets {
		ct, err := sealField(recordKey, nonce, t.name, t.value)
		if err != nil {
			return nil, fmt.Errorf("vault: failed to encrypt %s: %w", t.name, err)
		}
		*t.dst = ct
	}
	return s, nil
}

// Open decrypts s under masterKey and checks its integrity tag. Any failure
// is reported as ErrIntegrityViolation and no partial record is returned.
func (s *SealedRecord) Open(masterKey string) (*Record, error) {
	nonce, err := crypto.DecodeSalt(s.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	if s.Username == "" || s.Password == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrIntegrityViolation)
	}
	recordKey, err := crypto.DeriveRecordKey(masterKey, s.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrityViolation, err)
	}
	defer crypto.SecureWipe(recordKey)

	f := Fields{Entry: s.Entry}
	targets := []struct {
		name  string
		value string
		dst   *string
	}{
		{FieldUsername, s.Username, &f.Username},
		{FieldPassword, s.Password, &f.Password},
		{FieldEmail, s.Email, &f.Email},
		{FieldNote, s.Note, &f.Note},
	}
	for _, t := range targets {
		pt, err := openField(recordKey, nonce, t.name, t.value)
		if err != nil {
			return nil, err
		}
		*t.dst = pt
	}

	if !tagsEqual(s.Tag, computeTag(f, masterKey)) {
		return nil, fmt.Errorf("%w: tag mismatch", ErrIntegrityViolation)
	}

	return &Record{salt: s.Salt, fields: f, tag: s.Tag}, nil
}
