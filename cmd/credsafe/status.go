package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/internal/atomicfile"
	"github.com/forest6511/credsafe/pkg/lockout"
	"github.com/forest6511/credsafe/pkg/vault"
)

// Log flags
var (
	logLimit  int
	logFormat string
	logSince  string
	logUntil  string
	logOutput string
)

func init() {
	rootCmd.AddCommand(statusCmd, logCmd)
	logCmd.AddCommand(logListCmd, logExportCmd)

	logListCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of recent events to show (0 for all)")

	logExportCmd.Flags().StringVarP(&logFormat, "format", "f", "json", "Output format: json, csv")
	logExportCmd.Flags().StringVar(&logSince, "since", "", "Only events at or after this time (RFC 3339 or YYYY-MM-DD)")
	logExportCmd.Flags().StringVar(&logUntil, "until", "", "Only events at or before this time (RFC 3339 or YYYY-MM-DD)")
	logExportCmd.Flags().StringVarP(&logOutput, "output", "o", "", "Output file (default: stdout)")
	_ = logExportCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{"json", "csv"}, cobra.ShellCompDirectiveNoFileComp))
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault and lockout status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Vault:   %s\n", sess.store.Path())
		if sess.store.Exists() {
			entries, err := sess.store.Entries()
			switch {
			case errors.Is(err, vault.ErrCorrupted):
				fmt.Fprintln(out, "Entries: (vault file unreadable)")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Entries: %d\n", len(entries))
			}
		} else {
			fmt.Fprintln(out, "Entries: (not initialized)")
		}
		fmt.Fprintf(out, "Log:     %s\n", sess.log.Path())

		st, err := sess.log.State()
		if err != nil {
			return err
		}
		if st.Banned {
			fmt.Fprintf(out, "Locked:  yes, until %s (%s left)\n",
				st.Until.Local().Format(time.DateTime), st.Remaining.Round(time.Second))
			return nil
		}
		fmt.Fprintln(out, "Locked:  no")
		fmt.Fprintf(out, "Failed attempts: %d (%d left before lockout)\n", st.Streak, st.AttemptsLeft)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect the event log",
	Long: `The event log records unlock attempts, lockouts and command activity.
It is capped at max_logs lines; older lines are dropped.`,
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := sess.log.Events(logLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No events")
			return nil
		}
		for _, e := range events {
			if e.Kind == lockout.KindInvalid {
				fmt.Fprintf(out, "%-19s  %-12s  %s\n", "-", e.Kind, e.Raw)
				continue
			}
			fmt.Fprintf(out, "%-19s  %-12s  %s\n", e.Time.Local().Format(time.DateTime), e.Kind, e.Payload)
		}
		return nil
	},
}

var logExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		since, err := parseLogTime(logSince, false)
		if err != nil {
			return err
		}
		until, err := parseLogTime(logUntil, true)
		if err != nil {
			return err
		}
		if !since.IsZero() && !until.IsZero() && until.Before(since) {
			return fmt.Errorf("--until is before --since")
		}

		data, err := sess.log.Export(logFormat, since, until)
		if err != nil {
			return err
		}
		if logOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := atomicfile.Write(logOutput, data, lockout.FileMode); err != nil {
			return fmt.Errorf("failed to write %s: %w", logOutput, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported events to %s\n", logOutput)
		return nil
	},
}

// parseLogTime accepts RFC 3339 or a bare date. A bare date used as an
// upper bound covers the whole day.
func parseLogTime(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
