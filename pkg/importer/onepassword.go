package importer

import (
	"strings"

	"github.com/forest6511/credsafe/pkg/vault"
)

// OnePasswordParser parses 1Password CSV export files:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// 1Password CSV column names.
const (
	op1ColTitle    = "Title"
	op1ColWebsite  = "Website"
	op1ColUsername = "Username"
	op1ColPassword = "Password"
	op1ColOTPAuth  = "OTPAuth"
	op1ColArchived = "Archived"
	op1ColTags     = "Tags"
	op1ColNotes    = "Notes"
)

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV data. Archived items are skipped. The first
// tag becomes a label prefix.
func (p *OnePasswordParser) Parse(data []byte) (*ImportResult, error) {
	result := newResult()
	counter := 1

	err := readCSV(data, op1ColTitle, false, result, func(_ int, get csvRow) {
		title := get(op1ColTitle)
		if strings.EqualFold(get(op1ColArchived), "true") {
			result.Skipped = append(result.Skipped, SkippedItem{OriginalName: title, Reason: "archived"})
			return
		}

		website := get(op1ColWebsite)
		label := SanitizeLabel(title)
		if label == "" {
			label = GenerateFallbackLabel(website, counter)
			counter++
		}

		var group string
		if tags := get(op1ColTags); tags != "" {
			group, _, _ = strings.Cut(tags, ",")
		}

		result.add(title, vault.Fields{
			Entry:    withGroup(group, label),
			Username: get(op1ColUsername),
			Password: get(op1ColPassword),
			Note: joinNote(get(op1ColNotes),
				[2]string{"url", website},
				[2]string{"otpauth", get(op1ColOTPAuth)}),
		})
	})
	if err != nil {
		return nil, err
	}

	DeduplicateLabels(result.Items)
	return result, nil
}
