package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/cli"
	"github.com/forest6511/credsafe/internal/config"
	"github.com/forest6511/credsafe/internal/filelock"
	"github.com/forest6511/credsafe/pkg/lockout"
	"github.com/forest6511/credsafe/pkg/vault"
)

// Session levels, set through the sessionAnnotation of a command.
const (
	sessionAnnotation = "credsafe/session"
	sessionNone       = "none"   // nothing is loaded
	sessionConfig     = "config" // config only
)

var (
	homeFlag    string
	verboseFlag bool
)

var errIncorrectPassword = errors.New("incorrect password")
var errVaultEmpty = errors.New("vault is empty (add an entry first)")

// session holds everything a command works with. It is built before the
// command runs and released when Execute returns.
type session struct {
	opID   string
	cfg    *config.Config
	store  *vault.Store
	log    *lockout.Log
	logger *slog.Logger
	prompt *cli.Prompter
	locks  []*filelock.Lock
	stderr io.Writer
}

var sess *session

var rootCmd = &cobra.Command{
	Use:   "credsafe",
	Short: "credsafe is a local password vault",
	Long: `credsafe stores credentials in a single JSON file. Every field of every
entry is encrypted with its own key derived from the master key, and every
entry carries an integrity tag. Repeated wrong master keys lock the vault
for a while.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := cmd.Annotations[sessionAnnotation]
		if level == sessionNone || strings.HasPrefix(cmd.Name(), "__complete") || cmd.Name() == "help" {
			return nil
		}
		s, err := openSession(cmd, level == sessionConfig)
		if err != nil {
			return err
		}
		sess = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "credsafe home directory (default $"+config.EnvHome+" or ~/"+config.DefaultDirName+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log debug output to stderr")

	cobra.OnFinalize(closeSession)
}

// openSession loads the configuration and, unless configOnly, opens the
// lockout log and vault store with both advisory locks held.
func openSession(cmd *cobra.Command, configOnly bool) (*session, error) {
	home, err := config.ResolveHome(homeFlag)
	if err != nil {
		return nil, err
	}
	if cmd.Name() == "init" {
		if _, err := config.Init(home); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}

	s := &session{
		opID:   uuid.NewString()[:8],
		cfg:    cfg,
		prompt: cli.NewPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		stderr: cmd.ErrOrStderr(),
	}
	s.logger = newLogger(nil, cmd.ErrOrStderr(), verboseFlag).With("op", s.opID)
	if configOnly {
		return s, nil
	}

	s.log, err = lockout.Open(cfg.LogFile, cfg.Lockout)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(s.log.Lock); err != nil {
		return nil, err
	}
	s.logger = newLogger(s.log, cmd.ErrOrStderr(), verboseFlag).With("op", s.opID)

	s.store = vault.NewStore(cfg.VaultFile, vault.WithLogger(s.logger))
	if err := s.acquire(s.store.Lock); err != nil {
		s.close()
		return nil, err
	}

	for _, w := range s.store.CheckPermissions() {
		s.warn("%s", w)
	}
	s.logger.Debug("command started", "command", cmd.CommandPath())
	return s, nil
}

func (s *session) acquire(lock func() (*filelock.Lock, error)) error {
	l, err := lock()
	if err != nil {
		return err
	}
	s.locks = append(s.locks, l)
	return nil
}

func (s *session) close() {
	for i := len(s.locks) - 1; i >= 0; i-- {
		s.locks[i].Unlock()
	}
	s.locks = nil
}

func closeSession() {
	if sess != nil {
		sess.close()
		sess = nil
	}
}

func (s *session) warn(format string, args ...any) {
	fmt.Fprintf(s.stderr, "warning: "+format+"\n", args...)
}

// requireVault fails unless init has created the vault file.
func (s *session) requireVault() error {
	if !s.store.Exists() {
		return fmt.Errorf("%w at %s (run 'credsafe init')", vault.ErrVaultNotFound, s.store.Path())
	}
	return nil
}

// checkBan refuses to go on while a lockout is in force. The vault file is
// not touched.
func (s *session) checkBan() error {
	if err := s.log.Check(); err != nil {
		s.logger.Info("unlock refused", "error", err)
		return err
	}
	return nil
}

// unlock asks for the master key and loads the vault with it. A wrong key
// or an unreadable vault file counts as a failed attempt; I/O errors do not. With allowEmpty an
// empty vault asks for a new master key twice instead, because the first
// entry fixes the key.
func (s *session) unlock(allowEmpty bool) (string, []*vault.Record, error) {
	if err := s.requireVault(); err != nil {
		return "", nil, err
	}
	if err := s.checkBan(); err != nil {
		return "", nil, err
	}

	entries, err := s.store.Entries()
	if err != nil {
		if errors.Is(err, vault.ErrCorrupted) {
			return "", nil, fmt.Errorf("%w: %w", err, s.failedAttempt(err))
		}
		return "", nil, err
	}
	if len(entries) == 0 {
		if !allowEmpty {
			return "", nil, errVaultEmpty
		}
		key, err := s.newMasterKey("Choose master key: ", "Confirm master key: ")
		return key, nil, err
	}

	key, err := s.prompt.Secret("Master key: ")
	if err != nil {
		return "", nil, err
	}
	records, err := s.store.Load(key)
	if err != nil {
		if !errors.Is(err, vault.ErrWrongPasswordOrTampered) {
			return "", nil, err
		}
		return "", nil, s.failedAttempt(err)
	}
	if err := s.log.RecordAttempt(true); err != nil {
		return "", nil, err
	}
	return key, records, nil
}

// failedAttempt logs a failed unlock and reports how many attempts remain.
// The BanError from the attempt that triggers the lockout is returned as is.
func (s *session) failedAttempt(cause error) error {
	s.logger.Debug("unlock failed", "error", cause)
	if err := s.log.RecordAttempt(false); err != nil {
		return err
	}
	st, err := s.log.State()
	if err != nil {
		return errIncorrectPassword
	}
	return fmt.Errorf("%w (%d attempts left)", errIncorrectPassword, st.AttemptsLeft)
}

// newMasterKey asks for a new master key twice and validates it. Length
// violations are fatal; complexity warnings are printed.
func (s *session) newMasterKey(prompt, confirm string) (string, error) {
	key, err := s.prompt.SecretConfirm(prompt, confirm)
	if err != nil {
		if errors.Is(err, cli.ErrMismatch) {
			return "", vault.ErrPasswordsMismatch
		}
		return "", err
	}
	res := vault.ValidateMasterPassword(key)
	if !res.Valid {
		return "", res.Err
	}
	for _, w := range res.Warnings {
		s.warn("%s", w)
	}
	return key, nil
}

// describeError turns errors into the message shown to the user.
func describeError(err error) string {
	var ban *lockout.BanError
	switch {
	case errors.As(err, &ban) && ban.Triggered:
		return fmt.Sprintf("too many failed attempts, vault locked for %s", ban.Remaining.Round(time.Second))
	case errors.As(err, &ban):
		return fmt.Sprintf("vault is locked after too many failed attempts, try again in %s", ban.Remaining.Round(time.Second))
	case errors.Is(err, filelock.ErrLocked):
		return "another credsafe command is using the vault"
	case errors.Is(err, vault.ErrCorrupted):
		return "vault file is corrupted or was modified"
	}
	return err.Error()
}
