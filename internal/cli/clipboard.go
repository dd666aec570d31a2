package cli

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable means no clipboard tool could be found.
var ErrClipboardUnavailable = errors.New("cli: clipboard not available")

// clipboardCommand picks the platform clipboard tool. lookPath is
// exec.LookPath outside tests.
func clipboardCommand(goos string, lookPath func(string) (string, error)) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"pbcopy"}, nil
	case "windows":
		return []string{"clip"}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		candidates := [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
		for _, c := range candidates {
			if _, err := lookPath(c[0]); err == nil {
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: install wl-clipboard, xclip or xsel", ErrClipboardUnavailable)
	default:
		return nil, fmt.Errorf("%w on %s", ErrClipboardUnavailable, goos)
	}
}

// CopyToClipboard copies text to the system clipboard. The text is passed
// on stdin, never as an argument.
func CopyToClipboard(text string) error {
	argv, err := clipboardCommand(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
