package importer

import (
	"encoding/json"
	"fmt"

	"github.com/forest6511/credsafe/pkg/vault"
)

// BitwardenParser parses Bitwarden unencrypted JSON export files.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

// Bitwarden custom field types.
const (
	bitwardenFieldHidden = 1
)

// bitwardenExport represents the top-level Bitwarden export structure.
type bitwardenExport struct {
	Encrypted bool              `json:"encrypted"`
	Items     []bitwardenItem   `json:"items"`
	Folders   []bitwardenFolder `json:"folders"`
}

type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type bitwardenItem struct {
	Type     int                    `json:"type"`
	Name     string                 `json:"name"`
	Notes    string                 `json:"notes"`
	FolderID *string                `json:"folderId"`
	Login    *bitwardenLogin        `json:"login"`
	Fields   []bitwardenCustomField `json:"fields"`
}

type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

type bitwardenURI struct {
	URI string `json:"uri"`
}

type bitwardenCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  int    `json:"type"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data. Only login items carry credentials;
// other item types are skipped. The folder becomes a label prefix, and
// URIs, TOTP seed and custom fields are kept in the note.
func (p *BitwardenParser) Parse(data []byte) (*ImportResult, error) {
	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("importer: failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("%w: encrypted Bitwarden exports are not supported", ErrUnsupportedSource)
	}

	folders := make(map[string]string, len(export.Folders))
	for _, f := range export.Folders {
		folders[f.ID] = f.Name
	}

	result := newResult()
	counter := 1
	for i := range export.Items {
		item := &export.Items[i]

		if item.Type != bitwardenTypeLogin || item.Login == nil {
			result.Skipped = append(result.Skipped, SkippedItem{
				OriginalName: item.Name,
				Reason:       bitwardenTypeName(item.Type) + " items are not supported",
			})
			continue
		}

		login := item.Login
		var primaryURL string
		if len(login.URIs) > 0 {
			primaryURL = login.URIs[0].URI
		}

		label := SanitizeLabel(item.Name)
		if label == "" {
			label = GenerateFallbackLabel(primaryURL, counter)
			counter++
		}
		var group string
		if item.FolderID != nil {
			group = folders[*item.FolderID]
		}

		extra := make([][2]string, 0, len(login.URIs)+len(item.Fields)+1)
		for _, u := range login.URIs {
			extra = append(extra, [2]string{"url", u.URI})
		}
		extra = append(extra, [2]string{"totp", login.TOTP})
		for _, cf := range item.Fields {
			if cf.Type == bitwardenFieldHidden {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("item %d (%s): hidden field %q stored in note", i+1, item.Name, cf.Name))
			}
			extra = append(extra, [2]string{cf.Name, cf.Value})
		}

		result.add(item.Name, vault.Fields{
			Entry:    withGroup(group, label),
			Username: login.Username,
			Password: login.Password,
			Note:     joinNote(item.Notes, extra...),
		})
	}

	DeduplicateLabels(result.Items)
	return result, nil
}

func bitwardenTypeName(t int) string {
	switch t {
	case bitwardenTypeLogin:
		return "empty login"
	case bitwardenTypeSecureNote:
		return "secure note"
	case bitwardenTypeCard:
		return "card"
	case bitwardenTypeIdentity:
		return "identity"
	}
	return fmt.Sprintf("type %d", t)
}
