package security

// Default issue caps for a report.
const (
	DefaultDuplicateLimit = 10
	DefaultWeakLimit      = 10
)

// Limits caps how many issues of each kind a report lists. Zero means
// unlimited.
type Limits struct {
	DuplicateLimit int
	WeakLimit      int
}

// DefaultLimits returns the caps used unless the caller asks for all issues.
func DefaultLimits() Limits {
	return Limits{
		DuplicateLimit: DefaultDuplicateLimit,
		WeakLimit:      DefaultWeakLimit,
	}
}

// Unlimited returns limits that list every issue.
func Unlimited() Limits {
	return Limits{}
}

// IsLimited returns true if results may be truncated.
func (l Limits) IsLimited() bool {
	return l.DuplicateLimit > 0 || l.WeakLimit > 0
}
