// Package importer reads credentials exported by credsafe itself and by
// other password managers, and merges them into a vault.
//
// Supported sources: credsafe plain export (native), credsafe encrypted
// export (backup), LastPass CSV, 1Password CSV and Bitwarden JSON.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/credsafe/pkg/backup"
	"github.com/forest6511/credsafe/pkg/vault"
)

// Source represents the format of an import file.
type Source string

const (
	SourceNative      Source = "native"
	SourceBackup      Source = "backup"
	SourceLastPass    Source = "lastpass"
	Source1Password   Source = "1password"
	SourceBitwarden   Source = "bitwarden"
	sourceUnspecified Source = ""
)

// Errors
var (
	ErrUnknownFormat     = errors.New("importer: cannot detect import format")
	ErrUnsupportedSource = errors.New("importer: unsupported import source")
	ErrPasswordRequired  = errors.New("importer: encrypted export needs a passphrase")
)

// Item is one credential read from an import file.
type Item struct {
	// Fields holds the credential with a sanitised entry label.
	Fields vault.Fields

	// OriginalName is the name as it appeared in the source.
	OriginalName string
}

// ImportResult contains the results of parsing an import file.
type ImportResult struct {
	// Items are the successfully parsed credentials.
	Items []*Item

	// Warnings are non-fatal issues encountered during parsing.
	Warnings []string

	// Skipped are items that were skipped with reasons.
	Skipped []SkippedItem
}

// SkippedItem represents an item that was skipped during import.
type SkippedItem struct {
	OriginalName string
	Reason       string
}

func newResult() *ImportResult {
	return &ImportResult{
		Items:    make([]*Item, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}
}

// add records a parsed credential, or skips it when the vault could not
// hold it because username or password is missing.
func (r *ImportResult) add(original string, f vault.Fields) {
	switch {
	case f.Username == "":
		r.Skipped = append(r.Skipped, SkippedItem{OriginalName: original, Reason: "no username"})
	case f.Password == "":
		r.Skipped = append(r.Skipped, SkippedItem{OriginalName: original, Reason: "no password"})
	default:
		r.Items = append(r.Items, &Item{Fields: f, OriginalName: original})
	}
}

// Parser is the interface for import format parsers.
type Parser interface {
	// Parse parses the input data and returns imported credentials.
	Parse(data []byte) (*ImportResult, error)

	// Source returns the source type for this parser.
	Source() Source
}

// SanitizeLabel turns a source name into an entry label: NFC, control
// characters replaced by spaces, trimmed, and cut to vault.MaxEntryLength
// bytes on a rune boundary.
func SanitizeLabel(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == utf8.RuneError {
			return ' '
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if len(name) > vault.MaxEntryLength {
		cut := vault.MaxEntryLength
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	return name
}

// DeduplicateLabels makes entry labels unique within items by appending
// _1, _2, ... to later duplicates. A suffixed label never takes a name
// another item already carries.
func DeduplicateLabels(items []*Item) {
	reserved := make(map[string]bool, len(items))
	for _, it := range items {
		reserved[it.Fields.Entry] = true
	}

	used := make(map[string]bool, len(items))
	for _, it := range items {
		base := it.Fields.Entry
		if !used[base] {
			used[base] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s_%d", base, n)
			if !used[candidate] && !reserved[candidate] {
				it.Fields.Entry = candidate
				used[candidate] = true
				break
			}
		}
	}
}

// GenerateFallbackLabel names an item that has no usable name: the URL
// hostname when there is one, otherwise imported_item_N.
func GenerateFallbackLabel(url string, counter int) string {
	if url != "" {
		if host := extractHostname(url); host != "" {
			return host
		}
	}
	return fmt.Sprintf("imported_item_%d", counter)
}

// extractHostname extracts the hostname from a URL.
func extractHostname(urlStr string) string {
	urlStr = strings.TrimPrefix(urlStr, "https://")
	urlStr = strings.TrimPrefix(urlStr, "http://")

	if idx := strings.Index(urlStr, "/"); idx != -1 {
		urlStr = urlStr[:idx]
	}
	if idx := strings.Index(urlStr, ":"); idx != -1 {
		urlStr = urlStr[:idx]
	}
	return strings.TrimPrefix(urlStr, "www.")
}

// DecodeHTMLEntities decodes common HTML entities found in LastPass exports.
func DecodeHTMLEntities(s string) string {
	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
	)
	return r.Replace(s)
}

// joinNote appends labelled lines to a note, skipping empty values.
func joinNote(note string, lines ...[2]string) string {
	var b strings.Builder
	b.WriteString(note)
	for _, l := range lines {
		if l[1] == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l[0])
		b.WriteString(": ")
		b.WriteString(l[1])
	}
	return b.String()
}

// withGroup prefixes a label with its folder, as "folder/label".
func withGroup(group, label string) string {
	group = strings.Trim(SanitizeLabel(group), "/")
	if group == "" {
		return label
	}
	return SanitizeLabel(group + "/" + label)
}

// Detect guesses the source of an import file from its content, falling
// back to the file extension.
func Detect(path string, data []byte) (Source, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))

	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '{':
			if backup.IsEnvelope(trimmed) {
				return SourceBackup, nil
			}
			var probe struct {
				Items json.RawMessage `json:"items"`
			}
			if json.Unmarshal(trimmed, &probe) == nil && probe.Items != nil {
				return SourceBitwarden, nil
			}
		case '[':
			return SourceNative, nil
		default:
			if src := detectCSV(trimmed); src != sourceUnspecified {
				return src, nil
			}
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return SourceLastPass, nil
	case ".json":
		return SourceNative, nil
	}
	return sourceUnspecified, ErrUnknownFormat
}

// detectCSV recognises a CSV export by its header line.
func detectCSV(data []byte) Source {
	header, _, _ := bytes.Cut(data, []byte("\n"))
	cols := make(map[string]bool)
	for _, c := range strings.Split(strings.TrimRight(string(header), "\r"), ",") {
		cols[strings.Trim(strings.TrimSpace(c), `"`)] = true
	}
	switch {
	case cols[lpColName] && cols[lpColURL] && cols[lpColPassword]:
		return SourceLastPass
	case cols[op1ColTitle] && cols[op1ColPassword]:
		return Source1Password
	}
	return sourceUnspecified
}

// GetParser returns a parser for the given source. password is only used
// for SourceBackup.
func GetParser(source Source, password []byte) (Parser, error) {
	switch source {
	case SourceNative:
		return &NativeParser{}, nil
	case SourceBackup:
		if len(password) == 0 {
			return nil, ErrPasswordRequired
		}
		return &BackupParser{Password: password}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(SourceNative),
		string(SourceBackup),
		string(SourceLastPass),
		string(Source1Password),
		string(SourceBitwarden),
	}
}
