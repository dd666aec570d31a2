package importer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/forest6511/credsafe/pkg/vault"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "GitHub", "GitHub"},
		{"trimmed", "  mail  ", "mail"},
		{"nfc", "cafe\u0301", "caf\u00e9"},
		{"control chars", "a\tb\nc", "a b c"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeLabel(tt.in); got != tt.want {
				t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeLabelTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", vault.MaxEntryLength)
	got := SanitizeLabel(long)
	if len(got) > vault.MaxEntryLength {
		t.Errorf("SanitizeLabel() length = %d, want <= %d", len(got), vault.MaxEntryLength)
	}
	if strings.ContainsRune(got, utf8.RuneError) || !strings.HasPrefix(long, got) {
		t.Errorf("SanitizeLabel() split a rune: %q", got[len(got)-4:])
	}
}

func TestDeduplicateLabels(t *testing.T) {
	labels := []string{"mail", "bank", "mail", "mail_1", "mail", "bank"}
	items := make([]*Item, len(labels))
	for i, l := range labels {
		items[i] = &Item{Fields: vault.Fields{Entry: l}}
	}

	DeduplicateLabels(items)

	want := []string{"mail", "bank", "mail_2", "mail_1", "mail_3", "bank_1"}
	for i, it := range items {
		if it.Fields.Entry != want[i] {
			t.Errorf("item %d = %q, want %q", i, it.Fields.Entry, want[i])
		}
	}
}

func TestGenerateFallbackLabel(t *testing.T) {
	tests := []struct {
		url     string
		counter int
		want    string
	}{
		{"https://www.example.com/login", 1, "example.com"},
		{"http://host:8080/x", 1, "host"},
		{"", 3, "imported_item_3"},
	}
	for _, tt := range tests {
		if got := GenerateFallbackLabel(tt.url, tt.counter); got != tt.want {
			t.Errorf("GenerateFallbackLabel(%q, %d) = %q, want %q", tt.url, tt.counter, got, tt.want)
		}
	}
}

func TestDecodeHTMLEntities(t *testing.T) {
	got := DecodeHTMLEntities("a&amp;b &lt;c&gt; &quot;d&quot; &#39;e&apos;")
	if want := `a&b <c> "d" 'e'`; got != want {
		t.Errorf("DecodeHTMLEntities() = %q, want %q", got, want)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		data    string
		want    Source
		wantErr bool
	}{
		{"native", "x.txt", `[{"entry":"mail"}]`, SourceNative, false},
		{"backup", "x", `{"format":"credsafe-backup","version":1}`, SourceBackup, false},
		{"bitwarden", "x", `{"encrypted":false,"items":[]}`, SourceBitwarden, false},
		{"lastpass", "x", "url,username,password,totp,extra,name,grouping,fav\n", SourceLastPass, false},
		{"lastpass bom", "x", "\ufeffurl,username,password,extra,name,grouping,fav\n", SourceLastPass, false},
		{"1password", "x", "Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes\n", Source1Password, false},
		{"csv by extension", "export.CSV", "a,b\n1,2\n", SourceLastPass, false},
		{"json by extension", "export.json", "", SourceNative, false},
		{"unknown", "export.bin", "hello", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.path, []byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("Detect() error = %v, want ErrUnknownFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetParser(t *testing.T) {
	for _, name := range ValidSources() {
		src := Source(name)
		p, err := GetParser(src, []byte("pw"))
		if err != nil {
			t.Errorf("GetParser(%q) error = %v", name, err)
			continue
		}
		if p.Source() != src {
			t.Errorf("GetParser(%q).Source() = %q", name, p.Source())
		}
	}

	if _, err := GetParser(SourceBackup, nil); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("GetParser(backup, nil) error = %v, want ErrPasswordRequired", err)
	}
	if _, err := GetParser("keepass", nil); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("GetParser(keepass) error = %v, want ErrUnsupportedSource", err)
	}
}

func TestParseConflictMode(t *testing.T) {
	tests := map[string]ConflictMode{
		"":          ConflictSkip,
		"skip":      ConflictSkip,
		"overwrite": ConflictOverwrite,
		"abort":     ConflictAbort,
	}
	for in, want := range tests {
		got, err := ParseConflictMode(in)
		if err != nil || got != want {
			t.Errorf("ParseConflictMode(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParseConflictMode("merge"); err == nil {
		t.Error("ParseConflictMode(merge) should fail")
	}
}

func TestMerge(t *testing.T) {
	const key = "k1"
	existing, err := vault.NewRecord(vault.Fields{Entry: "mail", Username: "bob", Password: "old"}, key)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	items := []*Item{
		{Fields: vault.Fields{Entry: "mail", Username: "bob", Password: "new"}},
		{Fields: vault.Fields{Entry: "bank", Username: "alice", Password: "pw"}},
	}

	t.Run("skip", func(t *testing.T) {
		res, err := Merge([]*vault.Record{existing}, items, ConflictSkip, key)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if res.Added != 1 || res.Replaced != 0 || len(res.Conflicts) != 1 {
			t.Errorf("Merge() = added %d replaced %d conflicts %v", res.Added, res.Replaced, res.Conflicts)
		}
		r, _ := vault.Find(res.Records, "mail")
		if r.Password() != "old" {
			t.Errorf("skip replaced the existing entry")
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		res, err := Merge([]*vault.Record{existing}, items, ConflictOverwrite, key)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if res.Added != 1 || res.Replaced != 1 || len(res.Records) != 2 {
			t.Errorf("Merge() = added %d replaced %d records %d", res.Added, res.Replaced, len(res.Records))
		}
		r, _ := vault.Find(res.Records, "mail")
		if r.Password() != "new" {
			t.Errorf("overwrite kept the old entry")
		}
		if existing.Password() != "old" {
			t.Error("Merge() modified the existing record")
		}
		for _, r := range res.Records {
			if err := r.Verify(key); err != nil {
				t.Errorf("merged record %q: %v", r.Entry(), err)
			}
		}
	})

	t.Run("abort", func(t *testing.T) {
		res, err := Merge([]*vault.Record{existing}, items, ConflictAbort, key)
		if !errors.Is(err, ErrConflict) || res != nil {
			t.Errorf("Merge() = %v, %v, want ErrConflict", res, err)
		}
	})

	t.Run("invalid item", func(t *testing.T) {
		bad := []*Item{{Fields: vault.Fields{Entry: "x", Username: "u"}}}
		if _, err := Merge(nil, bad, ConflictSkip, key); !errors.Is(err, vault.ErrPasswordRequired) {
			t.Errorf("Merge() error = %v, want ErrPasswordRequired", err)
		}
	})
}
