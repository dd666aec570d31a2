package vault

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forest6511/credsafe/internal/cli"
)

// Find returns the record whose entry label equals entry after
// normalisation, and its index. It returns (nil, -1) when absent.
func Find(records []*Record, entry string) (*Record, int) {
	entry = NormalizeEntry(entry)
	for i, r := range records {
		if r.fields.Entry == entry {
			return r, i
		}
	}
	return nil, -1
}

// Search returns records whose entry, username or email contains query,
// ignoring case.
func Search(records []*Record, query string) []*Record {
	q := strings.ToLower(NormalizeEntry(query))
	var out []*Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.fields.Entry), q) ||
			strings.Contains(strings.ToLower(r.fields.Username), q) ||
			strings.Contains(strings.ToLower(r.fields.Email), q) {
			out = append(out, r)
		}
	}
	return out
}

// Match returns the records whose entry label matches pattern. A pattern
// without glob characters must name an existing entry.
func Match(records []*Record, pattern string) ([]*Record, error) {
	pattern = NormalizeEntry(pattern)
	matched, err := cli.ExpandPattern(pattern, Labels(records))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntryNotFound, err)
	}
	out := make([]*Record, 0, len(matched))
	for _, entry := range matched {
		if r, _ := Find(records, entry); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// Labels returns the entry labels of records in order.
func Labels(records []*Record) []string {
	labels := make([]string, 0, len(records))
	for _, r := range records {
		labels = append(labels, r.fields.Entry)
	}
	return labels
}

// Insert appends r, rejecting a duplicate entry label.
func Insert(records []*Record, r *Record) ([]*Record, error) {
	if existing, _ := Find(records, r.fields.Entry); existing != nil {
		return nil, fmt.Errorf("%w: %q", ErrEntryExists, r.fields.Entry)
	}
	out := make([]*Record, 0, len(records)+1)
	out = append(out, records...)
	return append(out, r), nil
}

// Remove returns a new slice without the record labelled entry.
func Remove(records []*Record, entry string) ([]*Record, error) {
	_, idx := Find(records, entry)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, entry)
	}
	out := make([]*Record, 0, len(records)-1)
	out = append(out, records[:idx]...)
	return append(out, records[idx+1:]...), nil
}

// Replace returns a new slice where the record labelled entry is replaced
// by r in place. Renaming onto another existing label is rejected.
func Replace(records []*Record, entry string, r *Record) ([]*Record, error) {
	_, idx := Find(records, entry)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, entry)
	}
	if other, j := Find(records, r.fields.Entry); other != nil && j != idx {
		return nil, fmt.Errorf("%w: %q", ErrEntryExists, r.fields.Entry)
	}
	out := make([]*Record, len(records))
	copy(out, records)
	out[idx] = r
	return out, nil
}

// SortByEntry returns a copy of records ordered by entry label.
func SortByEntry(records []*Record) []*Record {
	out := make([]*Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].fields.Entry < out[j].fields.Entry
	})
	return out
}
