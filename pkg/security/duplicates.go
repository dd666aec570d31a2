package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/credsafe/pkg/vault"
)

// DuplicateGroup represents entries sharing the same password.
type DuplicateGroup struct {
	// Entries lists the entry labels, when requested.
	Entries []string `json:"entries,omitempty"`
	// Count is the number of entries sharing the password.
	Count int `json:"count"`
}

// FindDuplicates groups records whose passwords are equal after trimming
// and NFC normalisation. Passwords are compared as HMAC-SHA256 digests
// under a key that lives only in this Calculator. Groups are sorted by
// count, largest first.
func (c *Calculator) FindDuplicates(records []*vault.Record, includeEntries bool, limit int) ([]DuplicateGroup, error) {
	if c.hmacKey == nil {
		c.hmacKey = make([]byte, 32)
		if _, err := rand.Read(c.hmacKey); err != nil {
			return nil, fmt.Errorf("security: failed to generate session key: %w", err)
		}
	}

	groups := make(map[string][]string)
	var order []string
	for _, r := range records {
		value := normalizeValue(r.Password())
		if value == "" {
			continue
		}
		h := computeValueHash(value, c.hmacKey)
		if _, ok := groups[h]; !ok {
			order = append(order, h)
		}
		groups[h] = append(groups[h], r.Entry())
	}

	var result []DuplicateGroup
	for _, h := range order {
		entries := groups[h]
		if len(entries) < 2 {
			continue
		}
		g := DuplicateGroup{Count: len(entries)}
		if includeEntries {
			g.Entries = entries
		}
		result = append(result, g)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// computeValueHash computes HMAC-SHA256 of a value with the session key.
func computeValueHash(value string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeValue normalizes a password for comparison.
func normalizeValue(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// FindWeakPasswords returns an issue for every record whose password is
// Weak.
func (c *Calculator) FindWeakPasswords(records []*vault.Record, includeEntries bool, limit int) []SecurityIssue {
	var issues []SecurityIssue
	for _, r := range records {
		if Strength(r.Password()) != PasswordWeak {
			continue
		}
		issue := SecurityIssue{
			Type:        IssueWeakPassword,
			Severity:    SeverityWarning,
			Description: "Password has insufficient strength (" + formatLength(len([]rune(r.Password()))) + ")",
			Suggestion:  "Use a longer password (14+ characters)",
		}
		if includeEntries {
			issue.Entry = r.Entry()
		}
		issues = append(issues, issue)
	}

	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}
	return issues
}

// formatLength returns a human-readable length description.
func formatLength(n int) string {
	if n == 1 {
		return "1 character"
	}
	return fmt.Sprintf("%d characters", n)
}
