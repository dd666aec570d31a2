package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/credsafe/pkg/security"
)

// Check command flags
var (
	checkAll         bool
	checkJSON        bool
	checkShowEntries bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkAll, "all", "a", false, "List every issue instead of the first few of each kind")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
	checkCmd.Flags().BoolVar(&checkShowEntries, "show-entries", true, "Name the affected entries")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Analyze password health",
	Long: `Analyze the passwords in the vault and get recommendations.

The score is calculated from:
  - Password Strength (0-50): average strength by length
  - Uniqueness (0-50): share of passwords used by one entry only

Passwords are compared through a keyed hash that lives only for this
command; no password is printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, records, err := sess.unlock(false)
		if err != nil {
			return err
		}

		limits := security.DefaultLimits()
		if checkAll {
			limits = security.Unlimited()
		}
		report, err := security.NewCalculator(limits).Analyze(records, checkShowEntries)
		if err != nil {
			return fmt.Errorf("failed to analyze vault: %w", err)
		}

		if checkJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func printReport(out io.Writer, r *security.Report) {
	var rating string
	switch {
	case r.Overall >= 90:
		rating = "Excellent"
	case r.Overall >= 70:
		rating = "Good"
	case r.Overall >= 50:
		rating = "Fair"
	default:
		rating = "Needs Attention"
	}

	fmt.Fprintf(out, "Security Score: %d/100 (%s), %d entries\n\n", r.Overall, rating, r.Total)
	fmt.Fprintln(out, "Components:")
	fmt.Fprintf(out, "  Password Strength: %2d/50 %s\n", r.Components.StrengthScore, progressBar(r.Components.StrengthScore, 50))
	fmt.Fprintf(out, "  Uniqueness:        %2d/50 %s\n", r.Components.UniquenessScore, progressBar(r.Components.UniquenessScore, 50))
	fmt.Fprintln(out)

	if len(r.Issues) > 0 {
		fmt.Fprintf(out, "Issues (%d):\n", len(r.Issues))
		for i, issue := range r.Issues {
			where := ""
			if issue.Entry != "" {
				where = fmt.Sprintf(" %q", issue.Entry)
			} else if len(issue.Entries) > 0 {
				where = " " + strings.Join(issue.Entries, ", ")
			}
			fmt.Fprintf(out, "  %d. [%s]%s: %s\n", i+1, strings.ToUpper(string(issue.Type)), where, issue.Description)
		}
		fmt.Fprintln(out)
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintln(out, "Suggestions:")
		for _, s := range r.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
		fmt.Fprintln(out)
	}

	if r.Limited {
		fmt.Fprintln(out, "Some issues are not shown, use --all for the full list.")
	}
}

func progressBar(value, maxVal int) string {
	const width = 20
	filled := value * width / maxVal
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
