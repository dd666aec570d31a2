package backup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest6511/credsafe/pkg/vault"
)

// testKDF keeps Argon2id cheap in tests.
func testKDF(t *testing.T) KDFParams {
	t.Helper()
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	return KDFParams{Salt: salt, Memory: MinMemory, Time: 1, Threads: 1}
}

var testItems = []vault.Fields{
	{Entry: "mail", Username: "bob", Password: "p@ss", Email: "bob@example.com"},
	{Entry: "bank", Username: "alice", Password: "hunter2", Note: "pin 1234\nsecond line"},
}

func sealTest(t *testing.T) *Envelope {
	t.Helper()
	e, err := SealWithKDF(testItems, []byte("backup-pass"), testKDF(t))
	if err != nil {
		t.Fatalf("SealWithKDF() error = %v", err)
	}
	return e
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if len(salt1) != SaltLength {
		t.Errorf("GenerateSalt() length = %d, want %d", len(salt1), SaltLength)
	}
	salt2, _ := GenerateSalt()
	if bytes.Equal(salt1, salt2) {
		t.Error("GenerateSalt() returned the same salt twice")
	}
}

func TestDeriveBackupKeys(t *testing.T) {
	kdf := testKDF(t)

	enc1, mac1, err := DeriveBackupKeys([]byte("pw"), kdf)
	if err != nil {
		t.Fatalf("DeriveBackupKeys() error = %v", err)
	}
	if len(enc1) != KeyLength || len(mac1) != KeyLength {
		t.Errorf("key lengths = %d, %d, want %d", len(enc1), len(mac1), KeyLength)
	}
	if bytes.Equal(enc1, mac1) {
		t.Error("encryption and MAC keys must differ")
	}

	enc2, mac2, _ := DeriveBackupKeys([]byte("pw"), kdf)
	if !bytes.Equal(enc1, enc2) || !bytes.Equal(mac1, mac2) {
		t.Error("DeriveBackupKeys() is not deterministic")
	}

	if _, _, err := DeriveBackupKeys(nil, kdf); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("DeriveBackupKeys(nil) error = %v, want ErrEmptyPassword", err)
	}
}

func TestKDFValidate(t *testing.T) {
	good := testKDF(t)

	tests := []struct {
		name   string
		mutate func(*KDFParams)
	}{
		{"short salt", func(p *KDFParams) { p.Salt = p.Salt[:8] }},
		{"memory too low", func(p *KDFParams) { p.Memory = MinMemory - 1 }},
		{"memory too high", func(p *KDFParams) { p.Memory = MaxMemory + 1 }},
		{"zero time", func(p *KDFParams) { p.Time = 0 }},
		{"time too high", func(p *KDFParams) { p.Time = MaxTime + 1 }},
		{"zero threads", func(p *KDFParams) { p.Threads = 0 }},
	}

	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := good
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidKDF) {
				t.Errorf("Validate() error = %v, want ErrInvalidKDF", err)
			}
		})
	}
}

func TestSealOpen(t *testing.T) {
	e := sealTest(t)

	if e.Format != Format || e.Version != Version {
		t.Errorf("envelope header = %s/%d", e.Format, e.Version)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Error("envelope is missing id or created_at")
	}
	if bytes.Contains(e.Ciphertext, []byte("p@ss")) {
		t.Error("ciphertext contains a plaintext password")
	}

	items, err := e.Open([]byte("backup-pass"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(items) != len(testItems) {
		t.Fatalf("Open() returned %d items, want %d", len(items), len(testItems))
	}
	for i := range items {
		if items[i] != testItems[i] {
			t.Errorf("item %d = %+v, want %+v", i, items[i], testItems[i])
		}
	}
}

func TestSealOpenEmpty(t *testing.T) {
	e, err := SealWithKDF(nil, []byte("pw"), testKDF(t))
	if err != nil {
		t.Fatalf("SealWithKDF() error = %v", err)
	}
	items, err := e.Open([]byte("pw"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Open() = %v, want no items", items)
	}
}

func TestOpenWrongPassword(t *testing.T) {
	e := sealTest(t)
	if _, err := e.Open([]byte("wrong")); !errors.Is(err, ErrIntegrityFailed) {
		t.Errorf("Open() error = %v, want ErrIntegrityFailed", err)
	}
}

func TestOpenTampered(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Envelope)
		want   error
	}{
		{"ciphertext", func(e *Envelope) { e.Ciphertext[0] ^= 0x01 }, ErrIntegrityFailed},
		{"nonce", func(e *Envelope) { e.Nonce[0] ^= 0x01 }, ErrIntegrityFailed},
		{"mac", func(e *Envelope) { e.MAC[0] ^= 0x01 }, ErrIntegrityFailed},
		{"id", func(e *Envelope) { e.ID = "00000000-0000-0000-0000-000000000000" }, ErrIntegrityFailed},
		{"created_at", func(e *Envelope) { e.CreatedAt = e.CreatedAt.Add(1) }, ErrIntegrityFailed},
		{"salt", func(e *Envelope) { e.KDF.Salt[0] ^= 0x01 }, ErrIntegrityFailed},
		{"time", func(e *Envelope) { e.KDF.Time = 2 }, ErrIntegrityFailed},
		{"format", func(e *Envelope) { e.Format = "other" }, ErrInvalidFormat},
		{"version", func(e *Envelope) { e.Version = 2 }, ErrUnsupportedVersion},
		{"short nonce", func(e *Envelope) { e.Nonce = e.Nonce[:4] }, ErrInvalidFormat},
		{"huge memory", func(e *Envelope) { e.KDF.Memory = MaxMemory * 2 }, ErrInvalidKDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := sealTest(t)
			tt.mutate(e)
			if _, err := e.Open([]byte("backup-pass")); !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	e := sealTest(t)

	if err := e.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != FileMode {
		t.Errorf("backup permissions = %04o, want %04o", perm, FileMode)
	}

	data, _ := os.ReadFile(path)
	if !IsEnvelope(data) {
		t.Error("IsEnvelope() = false for a written backup")
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	items, err := got.Open([]byte("backup-pass"))
	if err != nil {
		t.Fatalf("Open() after ReadFile() error = %v", err)
	}
	if len(items) != 2 || items[0].Entry != "mail" {
		t.Errorf("Open() = %+v", items)
	}
}

func TestDecodeInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":      "hello",
		"plain export":  `[{"entry":"mail","username":"bob","password":"p"}]`,
		"wrong format":  `{"format":"other","version":1}`,
		"missing nonce": `{"format":"credsafe-backup","version":1,"id":"` + "6ba7b810-9dad-11d1-80b4-00c04fd430c8" + `"}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(input)); !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Decode() error = %v, want ErrInvalidFormat", err)
			}
		})
	}

	if _, err := Decode([]byte(`{"format":"credsafe-backup","version":9}`)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedVersion", err)
	}
	if IsEnvelope([]byte(`[]`)) {
		t.Error("IsEnvelope([]) = true")
	}
}
