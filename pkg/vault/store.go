package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/forest6511/credsafe/internal/atomicfile"
	"github.com/forest6511/credsafe/internal/filelock"
)

// Store reads and writes one vault file. It holds no key material between
// calls; every operation takes the master key explicitly.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store for the vault file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the vault file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the vault file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Init creates the vault directory and an empty vault file.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exists() {
		return ErrVaultAlreadyExists
	}
	if err := s.checkDiskSpaceForWrite(0); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create vault directory: %w", ErrIOFailure, err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, FileMode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrVaultAlreadyExists
		}
		return fmt.Errorf("%w: failed to create vault file: %w", ErrIOFailure, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s.logger.Info("vault initialized", "path", s.path)
	return nil
}

// Lock takes the advisory lock guarding the vault file. The caller must
// Unlock it when the command finishes.
func (s *Store) Lock() (*filelock.Lock, error) {
	return filelock.Acquire(s.path)
}

// readSealed parses the vault file. A missing or blank file yields no
// records and no error.
func (s *Store) readSealed() ([]SealedRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("%w: %w: not a record array", ErrWrongPasswordOrTampered, ErrCorrupted)
	}

	var sealed []SealedRecord
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrWrongPasswordOrTampered, ErrCorrupted, err)
	}
	return sealed, nil
}

// Load decrypts every record in the vault. An empty vault returns
// (nil, nil) without attempting any decryption. If any record fails to
// open the whole load fails with ErrWrongPasswordOrTampered; the failing
// record is not identified.
func (s *Store) Load(masterKey string) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(masterKey)
}

func (s *Store) load(masterKey string) ([]*Record, error) {
	sealed, err := s.readSealed()
	if err != nil {
		return nil, err
	}
	if len(sealed) == 0 {
		s.logger.Debug("vault is empty")
		return nil, nil
	}

	records := make([]*Record, 0, len(sealed))
	for i := range sealed {
		r, err := sealed[i].Open(masterKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrWrongPasswordOrTampered, err)
		}
		records = append(records, r)
	}

	s.logger.Debug("vault loaded", "records", len(records))
	return records, nil
}

// Entries returns the plaintext entry labels without decrypting anything.
func (s *Store) Entries() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := s.readSealed()
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(sealed))
	for _, sr := range sealed {
		entries = append(entries, sr.Entry)
	}
	return entries, nil
}

// Dump seals every record under masterKey and atomically replaces the vault
// file. If any record fails to verify or seal, nothing is written.
func (s *Store) Dump(records []*Record, masterKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dump(records, masterKey)
}

func (s *Store) dump(records []*Record, masterKey string) error {
	sealed := make([]*SealedRecord, 0, len(records))
	for _, r := range records {
		if err := r.Verify(masterKey); err != nil {
			return err
		}
		sr, err := r.Seal(masterKey)
		if err != nil {
			return err
		}
		sealed = append(sealed, sr)
	}

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: failed to marshal records: %w", err)
	}
	data = append(data, '\n')

	if err := s.checkDiskSpaceForWrite(len(data)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), DirMode); err != nil {
		return fmt.Errorf("%w: failed to create vault directory: %w", ErrIOFailure, err)
	}
	if err := atomicfile.Write(s.path, data, FileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s.logger.Debug("vault written", "records", len(sealed), "bytes", len(data))
	return nil
}

// ChangeMasterKey re-keys records from oldKey to newKey. Every record is
// verified under oldKey before any new record is built, and every new record
// gets a fresh salt and tag. On error no records are returned.
func ChangeMasterKey(records []*Record, oldKey, newKey string) ([]*Record, error) {
	if oldKey == newKey {
		return nil, ErrSameMasterKey
	}
	for _, r := range records {
		if err := r.Verify(oldKey); err != nil {
			return nil, err
		}
	}

	rekeyed := make([]*Record, 0, len(records))
	for _, r := range records {
		nr, err := NewRecord(r.fields, newKey)
		if err != nil {
			return nil, fmt.Errorf("vault: failed to re-key %q: %w", r.Entry(), err)
		}
		rekeyed = append(rekeyed, nr)
	}
	return rekeyed, nil
}

// ChangePassword loads the vault under oldKey, re-keys every record and
// writes the result under newKey. It returns the number of records re-keyed.
func (s *Store) ChangePassword(oldKey, newKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(oldKey)
	if err != nil {
		return 0, err
	}
	rekeyed, err := ChangeMasterKey(records, oldKey, newKey)
	if err != nil {
		return 0, err
	}
	if err := s.dump(rekeyed, newKey); err != nil {
		return 0, err
	}

	s.logger.Info("master key changed", "records", len(rekeyed))
	return len(rekeyed), nil
}

// CheckPermissions returns advisory warnings when the vault file or its
// directory is accessible by group or others. It never blocks an operation.
func (s *Store) CheckPermissions() []string {
	if runtime.GOOS == "windows" {
		return nil
	}

	var warnings []string
	dir := filepath.Dir(s.path)
	if info, err := os.Stat(dir); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			warnings = append(warnings,
				fmt.Sprintf("vault directory has insecure permissions %04o (expected 0700)", perm))
		}
	}
	if info, err := os.Stat(s.path); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			warnings = append(warnings,
				fmt.Sprintf("%s has insecure permissions %04o (expected 0600)", filepath.Base(s.path), perm))
		}
	}
	return warnings
}

// checkDiskSpaceForWrite verifies sufficient disk space before write operations
func (s *Store) checkDiskSpaceForWrite(dataSize int) error {
	info, err := s.CheckDiskSpace()
	if err != nil {
		// Don't block the write on a failed stat
		s.logger.Warn("failed to check disk space", "error", err)
		return nil
	}

	// Need at least MinDiskSpaceBytes or 2x the data size, whichever is larger
	required := uint64(MinDiskSpaceBytes)
	if uint64(dataSize*2) > required {
		required = uint64(dataSize * 2)
	}

	if info.Available < required {
		return fmt.Errorf("%w: only %d KB available, need at least %d KB",
			ErrInsufficientDisk, info.Available/1024, required/1024)
	}

	if info.UsedPct >= DiskWarningPercent {
		s.logger.Warn("disk is nearly full", "used_pct", info.UsedPct)
	}
	return nil
}
