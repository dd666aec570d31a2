package importer

import "github.com/forest6511/credsafe/pkg/vault"

// LastPassParser parses LastPass CSV export files:
// url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass CSV column names.
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColExtra    = "extra"
	lpColName     = "name"
	lpColGrouping = "grouping"
)

// lpSecureNoteURL marks secure notes in LastPass exports.
const lpSecureNoteURL = "http://sn"

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data. The grouping becomes a label prefix and
// the URL and TOTP seed are kept in the note.
func (p *LastPassParser) Parse(data []byte) (*ImportResult, error) {
	result := newResult()
	counter := 1

	err := readCSV(data, lpColName, true, result, func(_ int, get csvRow) {
		value := func(col string) string { return DecodeHTMLEntities(get(col)) }

		name := value(lpColName)
		url := value(lpColURL)
		if url == lpSecureNoteURL {
			url = ""
		}

		label := SanitizeLabel(name)
		if label == "" {
			label = GenerateFallbackLabel(url, counter)
			counter++
		}

		result.add(name, vault.Fields{
			Entry:    withGroup(value(lpColGrouping), label),
			Username: value(lpColUsername),
			Password: value(lpColPassword),
			Note: joinNote(value(lpColExtra),
				[2]string{"url", url},
				[2]string{"totp", value(lpColTOTP)}),
		})
	})
	if err != nil {
		return nil, err
	}

	DeduplicateLabels(result.Items)
	return result, nil
}
