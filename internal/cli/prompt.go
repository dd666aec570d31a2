package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Errors
var (
	ErrNoInput  = errors.New("cli: no input")
	ErrMismatch = errors.New("cli: entries do not match")
)

// Prompter reads answers from an input stream. Secrets are read without
// echo when the input is a terminal and as plain lines otherwise, so
// scripted input through a pipe works.
type Prompter struct {
	in     *bufio.Reader
	fd     int
	isTerm bool
	out    io.Writer
}

// NewPrompter returns a Prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok {
		p.fd = int(f.Fd())
		p.isTerm = term.IsTerminal(p.fd)
	}
	return p
}

// Line prompts and reads one line without its line ending.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	return p.readLine()
}

// Secret prompts and reads one line without echo.
func (p *Prompter) Secret(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.isTerm {
		return p.readLine()
	}
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// SecretConfirm reads a secret twice and returns ErrMismatch if the two
// answers differ.
func (p *Prompter) SecretConfirm(prompt, confirm string) (string, error) {
	first, err := p.Secret(prompt)
	if err != nil {
		return "", err
	}
	second, err := p.Secret(confirm)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrMismatch
	}
	return first, nil
}

// Confirm asks a yes/no question. Anything but y or yes means no.
func (p *Prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Line(prompt + " [y/N]: ")
	if err != nil && !errors.Is(err, ErrNoInput) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// readLine reads a single line, trimming the trailing newline. End of input
// with nothing read is ErrNoInput.
func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", ErrNoInput
			}
		} else {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}
