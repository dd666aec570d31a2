package security

import (
	"fmt"
	"strings"

	"github.com/forest6511/credsafe/pkg/vault"
)

// Report is the security assessment of a set of records.
type Report struct {
	// Overall is the total score (0-100).
	Overall int `json:"overall"`
	// Components breaks down the score.
	Components ScoreComponents `json:"components"`
	// Total is the number of records analysed.
	Total int `json:"total"`
	// Issues contains the detected problems.
	Issues []SecurityIssue `json:"issues"`
	// Suggestions provides actionable recommendations.
	Suggestions []string `json:"suggestions"`
	// Limited indicates some issues were left out.
	Limited bool `json:"limited"`
}

// ScoreComponents splits the score in two halves of up to 50 points.
type ScoreComponents struct {
	// StrengthScore is based on average password strength (0-50).
	StrengthScore int `json:"strength"`
	// UniquenessScore is based on the share of unique passwords (0-50).
	UniquenessScore int `json:"uniqueness"`
}

// IssueType identifies the type of security issue.
type IssueType string

const (
	// IssueWeakPassword indicates a password with insufficient strength.
	IssueWeakPassword IssueType = "weak"
	// IssueDuplicatePassword indicates a password reused across entries.
	IssueDuplicatePassword IssueType = "duplicate"
	// IssuePasswordIsUsername indicates a password equal to its username.
	IssuePasswordIsUsername IssueType = "username"
)

// Severity indicates the urgency of a security issue.
type Severity string

const (
	// SeverityCritical requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning should be addressed soon.
	SeverityWarning Severity = "warning"
)

// SecurityIssue represents a detected problem.
type SecurityIssue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	// Entry is the affected entry, empty unless entries were requested.
	Entry string `json:"entry,omitempty"`
	// Entries is set for duplicate issues.
	Entries     []string `json:"entries,omitempty"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Calculator computes security reports. It holds the session-local key
// used to compare passwords, so one Calculator should serve one command.
type Calculator struct {
	limits  Limits
	hmacKey []byte
}

// NewCalculator creates a calculator that caps issues at limits.
func NewCalculator(limits Limits) *Calculator {
	return &Calculator{limits: limits}
}

// Analyze scores records. With includeEntries the issues name the entries
// they concern.
func (c *Calculator) Analyze(records []*vault.Record, includeEntries bool) (*Report, error) {
	if len(records) == 0 {
		return &Report{
			Overall:     100,
			Components:  ScoreComponents{StrengthScore: 50, UniquenessScore: 50},
			Issues:      []SecurityIssue{},
			Suggestions: []string{},
		}, nil
	}

	points := 0
	for _, r := range records {
		points += Strength(r.Password()).Points()
	}
	strengthScore := points * 50 / (len(records) * PasswordStrong.Points())

	dups, err := c.FindDuplicates(records, includeEntries, 0)
	if err != nil {
		return nil, err
	}
	duplicated := 0
	for _, g := range dups {
		duplicated += g.Count
	}
	uniquenessScore := (len(records) - duplicated) * 50 / len(records)

	issues := make([]SecurityIssue, 0)
	for _, r := range records {
		if r.Password() != "" && strings.EqualFold(r.Password(), r.Username()) {
			issue := SecurityIssue{
				Type:        IssuePasswordIsUsername,
				Severity:    SeverityCritical,
				Description: "Password is the same as the username",
				Suggestion:  "Generate a new password",
			}
			if includeEntries {
				issue.Entry = r.Entry()
			}
			issues = append(issues, issue)
		}
	}
	issues = append(issues, c.FindWeakPasswords(records, includeEntries, 0)...)
	for _, g := range dups {
		issues = append(issues, SecurityIssue{
			Type:        IssueDuplicatePassword,
			Severity:    SeverityCritical,
			Entries:     g.Entries,
			Description: "Password is shared by " + formatCount(g.Count),
			Suggestion:  "Use a unique password for every entry",
		})
	}

	limited := false
	if c.limits.IsLimited() {
		issues, limited = c.applyLimits(issues)
	}

	return &Report{
		Overall: strengthScore + uniquenessScore,
		Components: ScoreComponents{
			StrengthScore:   strengthScore,
			UniquenessScore: uniquenessScore,
		},
		Total:       len(records),
		Issues:      issues,
		Suggestions: generateSuggestions(issues),
		Limited:     limited,
	}, nil
}

// applyLimits drops weak and duplicate issues beyond their caps.
func (c *Calculator) applyLimits(issues []SecurityIssue) ([]SecurityIssue, bool) {
	limited := false
	weakCount := 0
	dupCount := 0
	result := make([]SecurityIssue, 0, len(issues))

	for _, issue := range issues {
		switch issue.Type {
		case IssueWeakPassword:
			if c.limits.WeakLimit > 0 && weakCount >= c.limits.WeakLimit {
				limited = true
				continue
			}
			weakCount++
		case IssueDuplicatePassword:
			if c.limits.DuplicateLimit > 0 && dupCount >= c.limits.DuplicateLimit {
				limited = true
				continue
			}
			dupCount++
		}
		result = append(result, issue)
	}
	return result, limited
}

// generateSuggestions creates actionable recommendations based on issues.
func generateSuggestions(issues []SecurityIssue) []string {
	seen := make(map[IssueType]bool)
	for _, issue := range issues {
		seen[issue.Type] = true
	}

	suggestions := make([]string, 0, len(seen))
	if seen[IssuePasswordIsUsername] {
		suggestions = append(suggestions, "Never reuse a username as its password")
	}
	if seen[IssueWeakPassword] {
		suggestions = append(suggestions, "Update weak passwords with stronger alternatives (credsafe generate)")
	}
	if seen[IssueDuplicatePassword] {
		suggestions = append(suggestions, "Replace duplicate passwords with unique values")
	}
	return suggestions
}

func formatCount(n int) string {
	if n == 1 {
		return "1 entry"
	}
	return fmt.Sprintf("%d entries", n)
}
