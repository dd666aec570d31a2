// Package passgen generates random passwords from crypto/rand.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// Character sets
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	// CharsetAlphanumeric is the default character set.
	CharsetAlphanumeric = CharsetLowercase + CharsetUppercase + CharsetDigits
)

// Limits
const (
	MinLength        = 1
	MaxLength        = 4096
	MaxExcludeLength = 256
)

// Errors
var (
	ErrInvalidLength  = errors.New("passgen: invalid length")
	ErrEmptyCharset   = errors.New("passgen: character set is empty")
	ErrExcludeTooLong = errors.New("passgen: exclude string too long")
)

// Options selects the character set and length.
type Options struct {
	Length  int
	Symbols bool   // add CharsetSymbols to the alphanumeric set
	Exclude string // characters removed from the set
}

// Generator draws passwords uniformly from a fixed character set.
type Generator struct {
	charset string
	length  int
	rand    io.Reader
}

// New validates opts and returns a Generator.
func New(opts Options) (*Generator, error) {
	if opts.Length < MinLength || opts.Length > MaxLength {
		return nil, fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidLength, MinLength, MaxLength, opts.Length)
	}
	if len(opts.Exclude) > MaxExcludeLength {
		return nil, fmt.Errorf("%w: at most %d characters", ErrExcludeTooLong, MaxExcludeLength)
	}

	charset := CharsetAlphanumeric
	if opts.Symbols {
		charset += CharsetSymbols
	}
	if opts.Exclude != "" {
		charset = removeChars(charset, opts.Exclude)
	}
	if charset == "" {
		return nil, ErrEmptyCharset
	}

	return &Generator{charset: charset, length: opts.Length, rand: rand.Reader}, nil
}

// Generate returns an n-character alphanumeric password.
func Generate(n int) (string, error) {
	g, err := New(Options{Length: n})
	if err != nil {
		return "", err
	}
	return g.Generate()
}

// Charset returns the characters passwords are drawn from.
func (g *Generator) Charset() string {
	return g.charset
}

// Generate returns one password.
func (g *Generator) Generate() (string, error) {
	charsetLen := big.NewInt(int64(len(g.charset)))
	password := make([]byte, g.length)

	for i := range password {
		idx, err := rand.Int(g.rand, charsetLen)
		if err != nil {
			return "", fmt.Errorf("passgen: failed to generate random number: %w", err)
		}
		password[i] = g.charset[idx.Int64()]
	}
	return string(password), nil
}

// removeChars removes specified characters from a string
func removeChars(s, chars string) string {
	excludeSet := make(map[rune]bool)
	for _, c := range chars {
		excludeSet[c] = true
	}

	var result strings.Builder
	for _, c := range s {
		if !excludeSet[c] {
			result.WriteRune(c)
		}
	}
	return result.String()
}
