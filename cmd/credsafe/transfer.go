package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/cli"
	"github.com/forest6511/credsafe/pkg/backup"
	"github.com/forest6511/credsafe/pkg/importer"
	"github.com/forest6511/credsafe/pkg/vault"
)

// maxImportSize bounds the import file read into memory.
const maxImportSize = 50 * 1024 * 1024

// Import flags
var (
	importFormat   string
	importConflict string
	importDryRun   bool
)

// Export flags
var (
	exportEncrypt bool
	exportForce   bool
)

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Source format: "+strings.Join(importer.ValidSources(), ", ")+" (default: detect)")
	importCmd.Flags().StringVar(&importConflict, "on-conflict", "skip", "What to do with existing entries: skip, overwrite, abort")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without writing")
	_ = importCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(importer.ValidSources(), cobra.ShellCompDirectiveNoFileComp))
	_ = importCmd.RegisterFlagCompletionFunc("on-conflict", cobra.FixedCompletions([]string{"skip", "overwrite", "abort"}, cobra.ShellCompDirectiveNoFileComp))

	exportCmd.Flags().BoolVarP(&exportEncrypt, "encrypt", "e", false, "Write a passphrase-protected backup instead of plaintext")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Overwrite an existing file without asking")
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a file",
	Long: `Import entries from a credsafe export or backup, or from a LastPass,
1Password or Bitwarden export. The format is detected from the content
unless --format is given.

Items without a username or password are skipped. Duplicate names in the
file get a _1, _2, ... suffix.

Examples:
  credsafe import export.json
  credsafe import lastpass.csv --dry-run
  credsafe import backup.json --on-conflict overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := importer.ParseConflictMode(importConflict)
		if err != nil {
			return err
		}
		data, err := readImportFile(args[0])
		if err != nil {
			return err
		}

		source := importer.Source(importFormat)
		if source == "" {
			if source, err = importer.Detect(args[0], data); err != nil {
				return fmt.Errorf("%w (use --format)", err)
			}
		}

		key, records, err := sess.unlock(true)
		if err != nil {
			return err
		}

		var passphrase []byte
		if source == importer.SourceBackup {
			p, err := sess.prompt.Secret("Backup passphrase: ")
			if err != nil {
				return err
			}
			passphrase = []byte(p)
		}
		parser, err := importer.GetParser(source, passphrase)
		if err != nil {
			return err
		}
		result, err := parser.Parse(data)
		if err != nil {
			return err
		}

		for _, w := range result.Warnings {
			sess.warn("%s", w)
		}
		for _, s := range result.Skipped {
			sess.warn("skipped %q: %s", s.OriginalName, s.Reason)
		}

		merged, err := importer.Merge(records, result.Items, mode, key)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		verb := "Imported"
		if importDryRun {
			verb = "Would import"
		}
		fmt.Fprintf(out, "%s %d entries from %s (%d added, %d replaced, %d skipped)\n",
			verb, merged.Added+merged.Replaced, source, merged.Added, merged.Replaced, len(result.Skipped))
		if mode == importer.ConflictSkip && len(merged.Conflicts) > 0 {
			fmt.Fprintf(out, "%d existing entries kept: %s\n", len(merged.Conflicts), strings.Join(merged.Conflicts, ", "))
		}
		if importDryRun {
			return nil
		}
		if merged.Added+merged.Replaced == 0 {
			return nil
		}

		if err := sess.store.Dump(merged.Records, key); err != nil {
			return err
		}
		sess.logger.Info("entries imported", "source", string(source), "added", merged.Added, "replaced", merged.Replaced)
		return nil
	},
}

func readImportFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("import file exceeds %d MB", maxImportSize/(1024*1024))
	}
	return data, nil
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export every entry to a file",
	Long: `Export every entry. The default file is export_file from config.yaml.

Without --encrypt the file is plaintext JSON that credsafe import reads
back. With --encrypt it is a backup sealed with a separate passphrase
(Argon2id, AES-256-GCM and HMAC-SHA256).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := sess.cfg.ExportFile
		if len(args) == 1 {
			path = args[0]
		}

		_, records, err := sess.unlock(false)
		if err != nil {
			return err
		}
		records = vault.SortByEntry(records)

		if _, err := os.Stat(path); err == nil && !exportForce {
			ok, err := sess.prompt.Confirm(fmt.Sprintf("%s exists. Overwrite?", path))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		if exportEncrypt {
			pass, err := sess.prompt.SecretConfirm("Backup passphrase: ", "Confirm backup passphrase: ")
			if err != nil {
				if errors.Is(err, cli.ErrMismatch) {
					return vault.ErrPasswordsMismatch
				}
				return err
			}
			if pass == "" {
				return backup.ErrEmptyPassword
			}
			env, err := backup.Seal(importer.FieldsOf(records), []byte(pass))
			if err != nil {
				return err
			}
			if err := env.WriteFile(path); err != nil {
				return err
			}
		} else {
			sess.warn("%s holds every password in plaintext, delete it when done", path)
			if err := importer.WriteNative(path, records); err != nil {
				return err
			}
		}

		sess.logger.Info("entries exported", "count", len(records), "encrypted", exportEncrypt)
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(records), path)
		return nil
	},
}
