package security

import (
	"fmt"
	"testing"

	"github.com/forest6511/credsafe/pkg/vault"
)

func records(t *testing.T, pairs ...[2]string) []*vault.Record {
	t.Helper()
	var out []*vault.Record
	for i, p := range pairs {
		r, err := vault.NewRecord(vault.Fields{
			Entry:    fmt.Sprintf("entry%d", i),
			Username: p[0],
			Password: p[1],
		}, "k1")
		if err != nil {
			t.Fatalf("NewRecord() error = %v", err)
		}
		out = append(out, r)
	}
	return out
}

func TestFindDuplicates(t *testing.T) {
	recs := records(t,
		[2]string{"a", "shared-password"},
		[2]string{"b", "unique-password-1"},
		[2]string{"c", " shared-password "},
		[2]string{"d", "pair"},
		[2]string{"e", "pair"},
		[2]string{"f", "shared-password"},
	)

	c := NewCalculator(Unlimited())
	groups, err := c.FindDuplicates(recs, true, 0)
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("FindDuplicates() = %d groups, want 2", len(groups))
	}
	if groups[0].Count != 3 || groups[1].Count != 2 {
		t.Errorf("group counts = %d, %d, want 3, 2", groups[0].Count, groups[1].Count)
	}
	want := []string{"entry0", "entry2", "entry5"}
	for i, e := range groups[0].Entries {
		if e != want[i] {
			t.Errorf("group entries = %v, want %v", groups[0].Entries, want)
			break
		}
	}

	limited, _ := c.FindDuplicates(recs, false, 1)
	if len(limited) != 1 || limited[0].Entries != nil {
		t.Errorf("FindDuplicates(limit 1, no entries) = %+v", limited)
	}
}

func TestFindWeakPasswords(t *testing.T) {
	recs := records(t,
		[2]string{"a", "short"},
		[2]string{"b", "long-enough-password"},
		[2]string{"c", "tiny"},
	)
	c := NewCalculator(Unlimited())

	issues := c.FindWeakPasswords(recs, true, 0)
	if len(issues) != 2 {
		t.Fatalf("FindWeakPasswords() = %d issues, want 2", len(issues))
	}
	if issues[0].Entry != "entry0" || issues[0].Type != IssueWeakPassword {
		t.Errorf("first issue = %+v", issues[0])
	}
	if issues[0].Description != "Password has insufficient strength (5 characters)" {
		t.Errorf("Description = %q", issues[0].Description)
	}

	if got := c.FindWeakPasswords(recs, false, 1); len(got) != 1 || got[0].Entry != "" {
		t.Errorf("FindWeakPasswords(limit 1, no entries) = %+v", got)
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r, err := NewCalculator(DefaultLimits()).Analyze(nil, true)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if r.Overall != 100 || len(r.Issues) != 0 {
			t.Errorf("Analyze(nil) = %+v", r)
		}
	})

	t.Run("all strong and unique", func(t *testing.T) {
		recs := records(t,
			[2]string{"a", "aaaaaaaaaaaaaaaaaaaa1"},
			[2]string{"b", "bbbbbbbbbbbbbbbbbbbb2"},
		)
		r, err := NewCalculator(DefaultLimits()).Analyze(recs, true)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if r.Overall != 100 || len(r.Issues) != 0 || len(r.Suggestions) != 0 {
			t.Errorf("Analyze() = %+v", r)
		}
	})

	t.Run("mixed", func(t *testing.T) {
		recs := records(t,
			[2]string{"bob", "bob"},
			[2]string{"a", "short"},
			[2]string{"b", "short"},
			[2]string{"c", "aaaaaaaaaaaaaaaaaaaa1"},
		)
		r, err := NewCalculator(Unlimited()).Analyze(recs, true)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		// strength: 25 of 100 points -> 12; uniqueness: 2 of 4 unique -> 25
		if r.Components.StrengthScore != 12 || r.Components.UniquenessScore != 25 {
			t.Errorf("Components = %+v", r.Components)
		}
		if r.Overall != 37 || r.Total != 4 {
			t.Errorf("Overall = %d, Total = %d", r.Overall, r.Total)
		}

		counts := map[IssueType]int{}
		for _, i := range r.Issues {
			counts[i.Type]++
		}
		if counts[IssuePasswordIsUsername] != 1 || counts[IssueWeakPassword] != 3 || counts[IssueDuplicatePassword] != 1 {
			t.Errorf("issue counts = %v", counts)
		}
		if len(r.Suggestions) != 3 {
			t.Errorf("Suggestions = %v", r.Suggestions)
		}
	})

	t.Run("limited", func(t *testing.T) {
		recs := records(t,
			[2]string{"a", "w1"},
			[2]string{"b", "w2"},
			[2]string{"c", "w3"},
		)
		r, err := NewCalculator(Limits{WeakLimit: 2}).Analyze(recs, false)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		if !r.Limited || len(r.Issues) != 2 {
			t.Errorf("Analyze() limited = %v, issues = %d", r.Limited, len(r.Issues))
		}
	})
}
