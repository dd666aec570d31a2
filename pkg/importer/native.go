package importer

import (
	"encoding/json"
	"fmt"

	"github.com/forest6511/credsafe/internal/atomicfile"
	"github.com/forest6511/credsafe/pkg/backup"
	"github.com/forest6511/credsafe/pkg/vault"
)

// FileMode is the permission of written export files.
const FileMode = 0600

// NativeParser reads credsafe's plain export: a JSON array of
// {entry, username, password, email?, note?}.
type NativeParser struct{}

// Source returns the source type for this parser.
func (p *NativeParser) Source() Source {
	return SourceNative
}

// Parse parses a plain export.
func (p *NativeParser) Parse(data []byte) (*ImportResult, error) {
	var fields []vault.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("importer: failed to parse export: %w", err)
	}
	return fromFields(fields), nil
}

// BackupParser reads credsafe's encrypted export.
type BackupParser struct {
	Password []byte
}

// Source returns the source type for this parser.
func (p *BackupParser) Source() Source {
	return SourceBackup
}

// Parse verifies and decrypts an encrypted export.
func (p *BackupParser) Parse(data []byte) (*ImportResult, error) {
	env, err := backup.Decode(data)
	if err != nil {
		return nil, err
	}
	fields, err := env.Open(p.Password)
	if err != nil {
		return nil, err
	}
	return fromFields(fields), nil
}

func fromFields(fields []vault.Fields) *ImportResult {
	result := newResult()
	for i, f := range fields {
		original := f.Entry
		f.Entry = SanitizeLabel(f.Entry)
		if f.Entry == "" {
			f.Entry = GenerateFallbackLabel("", i+1)
		}
		result.add(original, f)
	}
	DeduplicateLabels(result.Items)
	return result
}

// FieldsOf returns the plaintext fields of records, in order.
func FieldsOf(records []*vault.Record) []vault.Fields {
	fields := make([]vault.Fields, 0, len(records))
	for _, r := range records {
		fields = append(fields, r.Fields())
	}
	return fields
}

// MarshalNative renders records as a plain export.
func MarshalNative(records []*vault.Record) ([]byte, error) {
	data, err := json.MarshalIndent(FieldsOf(records), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("importer: failed to encode export: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteNative atomically writes a plain export to path with 0600
// permissions.
func WriteNative(path string, records []*vault.Record) error {
	data, err := MarshalNative(records)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, FileMode)
}
