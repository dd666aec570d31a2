package vault

import (
	"errors"
	"testing"
)

func sampleRecords(t *testing.T) []*Record {
	t.Helper()
	return []*Record{
		mustRecord(t, Fields{Entry: "mail", Username: "bob", Password: "p1", Email: "bob@example.com"}, testKey),
		mustRecord(t, Fields{Entry: "work/vpn", Username: "robert", Password: "p2"}, testKey),
		mustRecord(t, Fields{Entry: "work/git", Username: "bob", Password: "p3"}, testKey),
		mustRecord(t, Fields{Entry: "bank", Username: "alice", Password: "p4"}, testKey),
	}
}

func TestFind(t *testing.T) {
	records := sampleRecords(t)

	r, idx := Find(records, "work/git")
	if r == nil || idx != 2 {
		t.Fatalf("Find(work/git) = %v, %d; want record at 2", r, idx)
	}
	if r, idx := Find(records, "  bank "); r == nil || idx != 3 {
		t.Errorf("Find() should normalise the label, got %v, %d", r, idx)
	}
	if r, idx := Find(records, "Bank"); r != nil || idx != -1 {
		t.Errorf("Find() should be case-sensitive, got %v, %d", r, idx)
	}
}

func TestSearch(t *testing.T) {
	records := sampleRecords(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"work", []string{"work/vpn", "work/git"}},
		{"BOB", []string{"mail", "work/git"}},
		{"example.com", []string{"mail"}},
		{"rob", []string{"work/vpn"}},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Labels(Search(records, tt.query))
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Search(%q)[%d] = %s, want %s", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMatch(t *testing.T) {
	records := sampleRecords(t)

	got, err := Match(records, "work/*")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if labels := Labels(got); len(labels) != 2 || labels[0] != "work/vpn" || labels[1] != "work/git" {
		t.Errorf("Match(work/*) = %v", labels)
	}

	got, err = Match(records, "mail")
	if err != nil || len(got) != 1 || got[0].Entry() != "mail" {
		t.Errorf("Match(mail) = %v, %v", Labels(got), err)
	}

	if _, err := Match(records, "home/*"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Match(home/*) error = %v, want ErrEntryNotFound", err)
	}
}

func TestInsert(t *testing.T) {
	records := sampleRecords(t)

	added := mustRecord(t, Fields{Entry: "shop", Username: "u", Password: "p"}, testKey)
	out, err := Insert(records, added)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if len(out) != len(records)+1 || out[len(out)-1] != added {
		t.Errorf("Insert() did not append the record")
	}

	dup := mustRecord(t, Fields{Entry: "mail", Username: "u", Password: "p"}, testKey)
	if _, err := Insert(records, dup); !errors.Is(err, ErrEntryExists) {
		t.Errorf("Insert(duplicate) error = %v, want ErrEntryExists", err)
	}
}

func TestRemove(t *testing.T) {
	records := sampleRecords(t)

	out, err := Remove(records, "work/vpn")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if labels := Labels(out); len(labels) != 3 || labels[1] != "work/git" {
		t.Errorf("Remove() = %v", labels)
	}
	if len(records) != 4 || records[1].Entry() != "work/vpn" {
		t.Error("Remove() modified its input")
	}

	if _, err := Remove(records, "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestReplace(t *testing.T) {
	records := sampleRecords(t)

	renamed, err := records[0].Edit(Fields{Entry: "email"}, testKey)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Replace(records, "mail", renamed)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if out[0].Entry() != "email" || records[0].Entry() != "mail" {
		t.Errorf("Replace() = %v, input = %v", Labels(out), Labels(records))
	}

	clash, err := records[0].Edit(Fields{Entry: "bank"}, testKey)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Replace(records, "mail", clash); !errors.Is(err, ErrEntryExists) {
		t.Errorf("Replace() onto existing label error = %v, want ErrEntryExists", err)
	}
	if _, err := Replace(records, "missing", renamed); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Replace(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestSortByEntry(t *testing.T) {
	records := sampleRecords(t)
	sorted := Labels(SortByEntry(records))

	want := []string{"bank", "mail", "work/git", "work/vpn"}
	for i := range want {
		if sorted[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, sorted[i], want[i])
		}
	}
	if records[0].Entry() != "mail" {
		t.Error("SortByEntry() modified its input")
	}
}
