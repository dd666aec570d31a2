// Package backup seals exported credentials into a passphrase-protected
// envelope and opens them again.
package backup

import "errors"

// Backup errors
var (
	// ErrInvalidFormat indicates the data is not a credsafe backup envelope.
	ErrInvalidFormat = errors.New("backup: not a credsafe backup")

	// ErrUnsupportedVersion indicates the envelope version is not supported.
	ErrUnsupportedVersion = errors.New("backup: unsupported format version")

	// ErrInvalidKDF indicates KDF parameters outside the accepted bounds.
	ErrInvalidKDF = errors.New("backup: invalid key derivation parameters")

	// ErrIntegrityFailed indicates the MAC did not verify: wrong passphrase or
	// an altered envelope.
	ErrIntegrityFailed = errors.New("backup: integrity check failed, wrong passphrase or tampered backup")

	// ErrDecryptionFailed indicates the payload could not be decrypted.
	ErrDecryptionFailed = errors.New("backup: decryption failed")

	// ErrEmptyPassword indicates an empty passphrase was provided.
	ErrEmptyPassword = errors.New("backup: passphrase cannot be empty")
)
