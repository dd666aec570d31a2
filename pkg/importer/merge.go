package importer

import (
	"errors"
	"fmt"

	"github.com/forest6511/credsafe/pkg/vault"
)

// ConflictMode specifies how to handle entries that already exist.
type ConflictMode int

const (
	// ConflictSkip keeps the existing entry.
	ConflictSkip ConflictMode = iota
	// ConflictOverwrite replaces the existing entry.
	ConflictOverwrite
	// ConflictAbort fails the whole import.
	ConflictAbort
)

// ErrConflict indicates an imported entry already exists.
var ErrConflict = errors.New("importer: entry already exists")

// ParseConflictMode parses skip, overwrite or abort.
func ParseConflictMode(s string) (ConflictMode, error) {
	switch s {
	case "skip", "":
		return ConflictSkip, nil
	case "overwrite":
		return ConflictOverwrite, nil
	case "abort", "error":
		return ConflictAbort, nil
	}
	return ConflictSkip, fmt.Errorf("invalid conflict mode %q (use skip, overwrite or abort)", s)
}

func (m ConflictMode) String() string {
	switch m {
	case ConflictOverwrite:
		return "overwrite"
	case ConflictAbort:
		return "abort"
	default:
		return "skip"
	}
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Records   []*vault.Record
	Added     int
	Replaced  int
	Conflicts []string
}

// Merge builds records for items under masterKey and combines them with
// existing. existing is not modified. On any error nothing is returned, so
// the caller's vault stays as it was.
func Merge(existing []*vault.Record, items []*Item, mode ConflictMode, masterKey string) (*MergeResult, error) {
	res := &MergeResult{Records: append([]*vault.Record(nil), existing...)}

	for _, it := range items {
		rec, err := vault.NewRecord(it.Fields, masterKey)
		if err != nil {
			return nil, fmt.Errorf("importer: %q: %w", it.Fields.Entry, err)
		}

		if _, idx := vault.Find(res.Records, rec.Entry()); idx >= 0 {
			res.Conflicts = append(res.Conflicts, rec.Entry())
			switch mode {
			case ConflictAbort:
				return nil, fmt.Errorf("%w: %s", ErrConflict, rec.Entry())
			case ConflictOverwrite:
				res.Records[idx] = rec
				res.Replaced++
			}
			continue
		}

		res.Records = append(res.Records, rec)
		res.Added++
	}
	return res, nil
}
