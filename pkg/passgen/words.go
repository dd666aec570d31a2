package passgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidWordCount is returned for a passphrase length BIP-39 cannot encode.
var ErrInvalidWordCount = errors.New("passgen: word count must be 12, 15, 18, 21 or 24")

// DefaultSeparator joins passphrase words.
const DefaultSeparator = "-"

// Passphrase returns words random words from the BIP-39 English list,
// joined by sep. Each word carries 11 bits; the last one includes a checksum.
func Passphrase(words int, sep string) (string, error) {
	if words < 12 || words > 24 || words%3 != 0 {
		return "", fmt.Errorf("%w, got %d", ErrInvalidWordCount, words)
	}

	entropy, err := bip39.NewEntropy(words * 32 / 3)
	if err != nil {
		return "", fmt.Errorf("passgen: failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("passgen: failed to encode passphrase: %w", err)
	}
	return strings.Join(strings.Fields(mnemonic), sep), nil
}
