package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/cli"
	"github.com/forest6511/credsafe/pkg/passgen"
	"github.com/forest6511/credsafe/pkg/vault"
)

// Flags for add and edit
var (
	entryUsername string
	entryEmail    string
	entryNote     string
	entryGenerate bool
	editRename    string
	editPassword  bool

	editClearEmail bool
	editClearNote  bool
)

// Flags for get, list and rm
var (
	getCopy   bool
	rmForce   bool
	listQuery string
)

func init() {
	rootCmd.AddCommand(initCmd, addCmd, getCmd, listCmd, editCmd, rmCmd)

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&entryUsername, "username", "u", "", "Username")
		c.Flags().StringVar(&entryEmail, "email", "", "Email address")
		c.Flags().StringVar(&entryNote, "note", "", "Free-form note")
		c.Flags().BoolVarP(&entryGenerate, "generate", "g", false, "Generate a random password")
	}
	editCmd.Flags().StringVar(&editRename, "rename", "", "New entry label")
	editCmd.Flags().BoolVarP(&editPassword, "password", "p", false, "Prompt for a new password")
	editCmd.Flags().BoolVar(&editClearEmail, "clear-email", false, "Remove the email address")
	editCmd.Flags().BoolVar(&editClearNote, "clear-note", false, "Remove the note")
	editCmd.MarkFlagsMutuallyExclusive("email", "clear-email")
	editCmd.MarkFlagsMutuallyExclusive("note", "clear-note")

	getCmd.Flags().BoolVarP(&getCopy, "copy", "c", false, "Copy the password to the clipboard instead of printing it")
	listCmd.Flags().StringVarP(&listQuery, "search", "s", "", "Search entries, usernames and emails (needs the master key)")
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Do not ask for confirmation")

	for _, c := range []*cobra.Command{getCmd, editCmd, rmCmd} {
		c.ValidArgsFunction = completeEntries
	}
}

// initCmd creates the config file and an empty vault
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration and an empty vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sess.store.Init(); err != nil {
			if errors.Is(err, vault.ErrVaultAlreadyExists) {
				return fmt.Errorf("%w at %s", err, sess.store.Path())
			}
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Vault initialized at %s\n", sess.store.Path())
		fmt.Fprintf(out, "Configuration: %s\n", sess.cfg.Home)
		fmt.Fprintln(out, "The master key is chosen when the first entry is added.")
		return nil
	},
}

// addCmd adds one entry
var addCmd = &cobra.Command{
	Use:   "add <entry>",
	Short: "Add an entry",
	Long: `Add an entry. Missing fields are prompted for.

On an empty vault the master key is asked twice: the first entry fixes it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, records, err := sess.unlock(true)
		if err != nil {
			return err
		}

		label := vault.NormalizeEntry(args[0])
		if _, idx := vault.Find(records, label); idx >= 0 {
			return fmt.Errorf("%w: %s", vault.ErrEntryExists, label)
		}

		f := vault.Fields{Entry: label, Username: entryUsername, Email: entryEmail, Note: entryNote}
		if f.Username == "" {
			if f.Username, err = sess.prompt.Line("Username: "); err != nil {
				return err
			}
		}
		if f.Password, err = readEntryPassword(cmd.OutOrStdout(), entryGenerate); err != nil {
			return err
		}

		rec, err := vault.NewRecord(f, key)
		if err != nil {
			return err
		}
		records, err = vault.Insert(records, rec)
		if err != nil {
			return err
		}
		if err := sess.store.Dump(records, key); err != nil {
			return err
		}

		sess.logger.Info("entry added", "entry", rec.Entry())
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' added\n", rec.Entry())
		return nil
	},
}

// readEntryPassword generates a password or asks for one twice.
func readEntryPassword(out io.Writer, generate bool) (string, error) {
	if generate {
		pw, err := newGenerator(sess.cfg.Generate.Length, sess.cfg.Generate.Symbols, "")
		if err != nil {
			return "", err
		}
		p, err := pw.Generate()
		if err != nil {
			return "", err
		}
		fmt.Fprintln(out, "Generated a random password.")
		return p, nil
	}

	p, err := sess.prompt.SecretConfirm("Password: ", "Confirm password: ")
	if errors.Is(err, cli.ErrMismatch) {
		return "", vault.ErrPasswordsMismatch
	}
	return p, err
}

func newGenerator(length int, symbols bool, exclude string) (*passgen.Generator, error) {
	return passgen.New(passgen.Options{Length: length, Symbols: symbols, Exclude: exclude})
}

// getCmd shows entries
var getCmd = &cobra.Command{
	Use:   "get <entry|glob>",
	Short: "Show an entry",
	Long: `Show an entry with its password. A glob pattern (*, ?, [...]) shows every
matching entry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, records, err := sess.unlock(false)
		if err != nil {
			return err
		}
		matches, err := vault.Match(records, args[0])
		if err != nil {
			return err
		}
		if getCopy && len(matches) != 1 {
			return fmt.Errorf("--copy needs exactly one entry, %d match", len(matches))
		}

		out := cmd.OutOrStdout()
		for i, r := range matches {
			if i > 0 {
				fmt.Fprintln(out)
			}
			password := r.Password()
			if getCopy {
				if err := cli.CopyToClipboard(password); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				password = "(copied to clipboard)"
			}
			printRecord(out, r, password)
		}
		sess.logger.Info("entries read", "count", len(matches))
		return nil
	},
}

func printRecord(out io.Writer, r *vault.Record, password string) {
	fmt.Fprintf(out, "entry:    %s\n", r.Entry())
	fmt.Fprintf(out, "username: %s\n", r.Username())
	fmt.Fprintf(out, "password: %s\n", password)
	if r.Email() != "" {
		fmt.Fprintf(out, "email:    %s\n", r.Email())
	}
	if r.Note() != "" {
		fmt.Fprintf(out, "note:     %s\n", strings.ReplaceAll(r.Note(), "\n", "\n          "))
	}
}

// listCmd lists entry labels
var listCmd = &cobra.Command{
	Use:   "list [glob]",
	Short: "List entries",
	Long: `List entry labels. Labels are stored in plaintext, so listing needs no
master key unless --search is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sess.requireVault(); err != nil {
			return err
		}

		var labels []string
		if listQuery != "" {
			_, records, err := sess.unlock(false)
			if err != nil {
				return err
			}
			labels = vault.Labels(vault.Search(records, listQuery))
		} else {
			if err := sess.checkBan(); err != nil {
				return err
			}
			var err error
			if labels, err = sess.store.Entries(); err != nil {
				return err
			}
		}

		if len(args) == 1 {
			matched, err := cli.ExpandPattern(args[0], labels)
			if err != nil && !errors.Is(err, cli.ErrNoMatch) {
				return err
			}
			labels = matched
		}

		out := cmd.OutOrStdout()
		for _, l := range cli.SortEntries(labels) {
			fmt.Fprintln(out, l)
		}
		return nil
	},
}

// editCmd changes an entry
var editCmd = &cobra.Command{
	Use:   "edit <entry>",
	Short: "Change an entry",
	Long: `Change fields of an entry. Only the given fields change; the entry is
re-encrypted with a fresh salt. Use --clear-email or --clear-note to remove
an optional field.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, records, err := sess.unlock(false)
		if err != nil {
			return err
		}
		old, _ := vault.Find(records, args[0])
		if old == nil {
			return fmt.Errorf("%w: %s", vault.ErrEntryNotFound, vault.NormalizeEntry(args[0]))
		}

		changes := vault.Fields{
			Entry:    editRename,
			Username: entryUsername,
			Email:    entryEmail,
			Note:     entryNote,
		}
		if editPassword || entryGenerate {
			if changes.Password, err = readEntryPassword(cmd.OutOrStdout(), entryGenerate); err != nil {
				return err
			}
		}
		var clear []string
		if editClearEmail {
			clear = append(clear, vault.FieldEmail)
		}
		if editClearNote {
			clear = append(clear, vault.FieldNote)
		}
		if changes == (vault.Fields{}) && len(clear) == 0 {
			return errors.New("nothing to change (see credsafe edit --help)")
		}

		rec, err := old.Edit(changes, key, clear...)
		if err != nil {
			return err
		}
		records, err = vault.Replace(records, old.Entry(), rec)
		if err != nil {
			return err
		}
		if err := sess.store.Dump(records, key); err != nil {
			return err
		}

		sess.logger.Info("entry changed", "entry", rec.Entry())
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' updated\n", rec.Entry())
		return nil
	},
}

// rmCmd removes entries
var rmCmd = &cobra.Command{
	Use:   "rm <entry|glob>...",
	Short: "Remove entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, records, err := sess.unlock(false)
		if err != nil {
			return err
		}
		targets, err := cli.ExpandPatterns(args, vault.Labels(records))
		if err != nil {
			return err
		}

		if !rmForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "Entries to remove: %s\n", strings.Join(targets, ", "))
			ok, err := sess.prompt.Confirm("Remove them?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
		}

		for _, t := range targets {
			if records, err = vault.Remove(records, t); err != nil {
				return err
			}
		}
		if err := sess.store.Dump(records, key); err != nil {
			return err
		}

		sess.logger.Info("entries removed", "count", len(targets))
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", len(targets))
		return nil
	},
}
