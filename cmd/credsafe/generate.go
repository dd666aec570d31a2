package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/cli"
	"github.com/forest6511/credsafe/pkg/passgen"
)

const maxGenerateCount = 100

// Generate command flags
var (
	generateSymbols bool
	generateExclude string
	generateCount   int
	generateCopy    bool
	generateWords   int
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVarP(&generateSymbols, "symbols", "s", false, "Include symbols (default from config)")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 1, "Number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVarP(&generateCopy, "copy", "c", false, "Copy the first password to the clipboard")
	generateCmd.Flags().IntVarP(&generateWords, "words", "w", 0, "Generate a word passphrase of 12, 15, 18, 21 or 24 words instead")
}

var generateCmd = &cobra.Command{
	Use:   "generate [length]",
	Short: "Generate random passwords",
	Long: `Generate random passwords from crypto/rand. The vault is not opened.

Examples:
  # Default length from config.yaml
  credsafe generate

  # 32 characters with symbols
  credsafe generate 32 --symbols

  # Five passwords without ambiguous characters
  credsafe generate -n 5 --exclude "0O1lI"

  # A 12-word passphrase
  credsafe generate --words 12`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{sessionAnnotation: sessionConfig},
	RunE: func(cmd *cobra.Command, args []string) error {
		length := sess.cfg.Generate.Length
		if len(args) == 1 {
			if _, err := fmt.Sscan(args[0], &length); err != nil {
				return fmt.Errorf("invalid length %q", args[0])
			}
		}
		if generateCount < 1 || generateCount > maxGenerateCount {
			return fmt.Errorf("count must be between 1 and %d", maxGenerateCount)
		}
		symbols := sess.cfg.Generate.Symbols
		if cmd.Flags().Changed("symbols") {
			symbols = generateSymbols
		}

		next := func() (string, error) {
			return passgen.Passphrase(generateWords, passgen.DefaultSeparator)
		}
		if generateWords == 0 {
			g, err := newGenerator(length, symbols, generateExclude)
			if err != nil {
				return err
			}
			next = g.Generate
		} else if len(args) == 1 {
			return fmt.Errorf("length and --words cannot be combined")
		}

		passwords := make([]string, generateCount)
		for i := range passwords {
			p, err := next()
			if err != nil {
				return err
			}
			passwords[i] = p
		}

		out := cmd.OutOrStdout()
		for _, p := range passwords {
			fmt.Fprintln(out, p)
		}
		if generateCopy {
			if err := cli.CopyToClipboard(passwords[0]); err != nil {
				sess.warn("failed to copy to clipboard: %v", err)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "Password copied to clipboard")
			}
		}
		return nil
	},
}
