// Package vault stores named credentials encrypted at rest under a master key.
//
// A vault is a single JSON file holding an array of sealed records. Each
// record carries its own random salt, which seeds both the per-record key
// derivation and the AEAD nonce, and an integrity tag over its plaintext
// fields and the master key.
package vault

import (
	"errors"
	"fmt"
	"regexp"
)

// Constants
const (
	FileMode = 0600 // Owner read/write only
	DirMode  = 0700 // Owner read/write/execute only

	// Disk capacity thresholds
	MinDiskSpaceBytes  = 1 * 1024 * 1024 // 1 MB minimum free space
	DiskWarningPercent = 90              // Warn when disk is 90% full

	// Input validation limits
	MaxEntryLength = 256         // Maximum entry label length in bytes
	MaxValueSize   = 64 * 1024   // Maximum username, password or email size
	MaxNoteSize    = 1024 * 1024 // Maximum note size
)

// Errors
var (
	ErrVaultAlreadyExists = errors.New("vault: vault already exists at this path")
	ErrVaultNotFound      = errors.New("vault: vault not found at this path")

	// ErrIntegrityViolation means a sealed record failed authentication or
	// its integrity tag did not match the decrypted fields.
	ErrIntegrityViolation = errors.New("vault: integrity violation")

	// ErrWrongPasswordOrTampered is returned by Load when any record fails
	// to open. The two causes are deliberately indistinguishable.
	ErrWrongPasswordOrTampered = errors.New("vault: wrong password or tampered vault")

	// ErrCorrupted means the vault file is not a valid JSON record array.
	ErrCorrupted = errors.New("vault: vault file is corrupted")

	// ErrIOFailure wraps filesystem errors while reading or writing the vault.
	ErrIOFailure = errors.New("vault: i/o failure")

	ErrInsufficientDisk  = errors.New("vault: insufficient disk space")
	ErrEntryRequired     = errors.New("vault: entry label is required")
	ErrEntryTooLong      = errors.New("vault: entry label too long")
	ErrEntryInvalid      = errors.New("vault: entry label contains invalid characters")
	ErrUsernameRequired  = errors.New("vault: username is required")
	ErrPasswordRequired  = errors.New("vault: password is required")
	ErrValueTooLarge     = errors.New("vault: value too large")
	ErrNoteTooLarge      = errors.New("vault: note too large")
	ErrEntryExists       = errors.New("vault: entry already exists")
	ErrEntryNotFound     = errors.New("vault: entry not found")
	ErrSameMasterKey     = errors.New("vault: new master key must differ from the old one")
	ErrPasswordTooShort  = errors.New("vault: password must be at least 8 characters")
	ErrPasswordTooLong   = errors.New("vault: password must be at most 128 characters")
	ErrPasswordsMismatch = errors.New("vault: passwords do not match")
	ErrFieldNotClearable = errors.New("vault: only email and note can be cleared")
)

// Master password limits
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordStrength represents the strength level of a master password
type PasswordStrength int

const (
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

// String returns a human-readable representation of password strength
func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "weak"
	case PasswordFair:
		return "fair"
	case PasswordGood:
		return "good"
	case PasswordStrong:
		return "strong"
	default:
		return "unknown"
	}
}

// PasswordValidationResult contains the result of master password validation
type PasswordValidationResult struct {
	Valid    bool             // Whether password meets minimum requirements
	Strength PasswordStrength // Estimated strength
	Warnings []string         // Suggestions for improvement (not errors)
	Err      error            // ErrPasswordTooShort or ErrPasswordTooLong when !Valid
}

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`\d`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>\-_=+\[\]\\;'~/\x60]`)
)

// ValidateMasterPassword checks a candidate master password.
// Length limits are hard requirements; complexity only produces warnings.
func ValidateMasterPassword(password string) *PasswordValidationResult {
	result := &PasswordValidationResult{
		Valid:    true,
		Strength: PasswordFair,
	}

	if len(password) < MinPasswordLength {
		result.Valid = false
		result.Strength = PasswordWeak
		result.Err = ErrPasswordTooShort
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
		return result
	}
	if len(password) > MaxPasswordLength {
		result.Valid = false
		result.Strength = PasswordWeak
		result.Err = ErrPasswordTooLong
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Password must be at most %d characters", MaxPasswordLength))
		return result
	}

	complexity := 0
	for _, re := range []*regexp.Regexp{upperRe, lowerRe, digitRe, specialRe} {
		if re.MatchString(password) {
			complexity++
		}
	}

	if complexity < 2 {
		result.Warnings = append(result.Warnings,
			"Consider using a mix of uppercase, lowercase, numbers, and symbols")
	}
	if len(password) < 12 {
		result.Warnings = append(result.Warnings,
			"Longer passwords (12+ characters) are more secure")
	}

	switch {
	case complexity >= 3 && len(password) >= 16:
		result.Strength = PasswordStrong
	case complexity >= 2 && len(password) >= 12:
		result.Strength = PasswordGood
	case complexity >= 2 || len(password) >= 12:
		result.Strength = PasswordFair
	default:
		result.Strength = PasswordWeak
	}

	return result
}

// DiskSpaceInfo contains disk usage information
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}
