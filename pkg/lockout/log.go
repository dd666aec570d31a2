// Package lockout throttles repeated failed unlock attempts.
//
// State lives in a bounded, line-oriented event log. Each line is
// "<unix_millis> <KIND> [payload]". A run of MaxFails LOGIN_FAILED events
// appends a BAN line, and while that ban is in force further attempts are
// refused without touching the vault. The same file doubles as the
// application's diagnostic log via Handler.
package lockout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/forest6511/credsafe/internal/atomicfile"
	"github.com/forest6511/credsafe/internal/filelock"
)

// Defaults
const (
	DefaultMaxFails = 5
	DefaultBanTime  = 5 * time.Minute
	DefaultMaxLogs  = 300

	FileMode = 0600
	DirMode  = 0700

	MinDiskSpace = 64 * 1024 // 64 KB minimum for log writes
)

// Errors
var (
	ErrInvalidConfig = errors.New("lockout: invalid configuration")
	ErrInvalidKind   = errors.New("lockout: event kind cannot be written")
	ErrInvalidFormat = errors.New("lockout: unsupported export format")
)

// Config bounds the lockout behaviour. Zero fields take the defaults.
type Config struct {
	MaxFails int           `yaml:"max_fails"`
	BanTime  time.Duration `yaml:"ban_time"`
	MaxLogs  int           `yaml:"max_logs"`
}

// DefaultConfig returns the default lockout configuration.
func DefaultConfig() Config {
	return Config{
		MaxFails: DefaultMaxFails,
		BanTime:  DefaultBanTime,
		MaxLogs:  DefaultMaxLogs,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFails == 0 {
		c.MaxFails = d.MaxFails
	}
	if c.BanTime == 0 {
		c.BanTime = d.BanTime
	}
	if c.MaxLogs == 0 {
		c.MaxLogs = d.MaxLogs
	}
	return c
}

// Validate checks c after defaults are applied. MaxLogs must leave room for
// a full failure streak plus the BAN line.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.MaxFails < 1:
		return fmt.Errorf("%w: max_fails must be positive, got %d", ErrInvalidConfig, c.MaxFails)
	case c.BanTime < time.Second:
		return fmt.Errorf("%w: ban_time must be at least 1s, got %s", ErrInvalidConfig, c.BanTime)
	case c.MaxLogs <= c.MaxFails:
		return fmt.Errorf("%w: max_logs (%d) must exceed max_fails (%d)", ErrInvalidConfig, c.MaxLogs, c.MaxFails)
	}
	return nil
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Log.
type Option func(*Log)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(l *Log) {
		if c != nil {
			l.clock = c
		}
	}
}

// Log is the lockout event log backed by one file.
type Log struct {
	path  string
	cfg   Config
	clock Clock
	mu    sync.Mutex
}

// Open prepares the log at path, creating it (0600) if missing.
func Open(path string, cfg Config, opts ...Option) (*Log, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Log{
		path:  path,
		cfg:   cfg.withDefaults(),
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, fmt.Errorf("lockout: failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, fmt.Errorf("lockout: failed to open log: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("lockout: failed to open log: %w", err)
	}
	return l, nil
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Config returns the effective configuration.
func (l *Log) Config() Config {
	return l.cfg
}

// Lock takes the advisory lock guarding the log file for a whole
// check/attempt/record cycle.
func (l *Log) Lock() (*filelock.Lock, error) {
	return filelock.Acquire(l.path)
}

// Append writes one event and then trims the log to MaxLogs lines.
func (l *Log) Append(kind Kind, payload string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(kind, payload)
}

// Info appends an INFO event.
func (l *Log) Info(msg string) error { return l.Append(KindInfo, msg) }

// Debug appends a DEBUG event.
func (l *Log) Debug(msg string) error { return l.Append(KindDebug, msg) }

// Error appends an ERROR event.
func (l *Log) Error(msg string) error { return l.Append(KindError, msg) }

func (l *Log) append(kind Kind, payload string) error {
	if !kind.writable() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err := l.checkDiskSpace(); err != nil {
		return err
	}

	e := Event{Time: l.clock.Now(), Kind: kind, Payload: sanitizePayload(payload)}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return fmt.Errorf("lockout: failed to open log: %w", err)
	}
	if _, err := f.WriteString(e.String() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("lockout: failed to write event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("lockout: failed to write event: %w", err)
	}

	return l.rotate()
}

// readLines returns the non-empty lines of the log. A missing file has none.
func (l *Log) readLines() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("lockout: failed to read log: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (l *Log) read() ([]Event, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(lines))
	for _, line := range lines {
		events = append(events, ParseEvent(line))
	}
	return events, nil
}

// rotate drops the oldest lines so that exactly MaxLogs remain. The most
// recent BAN line is kept while it is in force, taking the slot of the
// oldest surviving line.
func (l *Log) rotate() error {
	lines, err := l.readLines()
	if err != nil {
		return err
	}
	limit := l.cfg.MaxLogs
	if len(lines) <= limit {
		return nil
	}

	cut := len(lines) - limit
	kept := lines[cut:]

	banIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		e := ParseEvent(lines[i])
		if e.Kind == KindBan {
			if until, _ := e.BanUntil(); l.clock.Now().Before(until) {
				banIdx = i
			}
			break
		}
	}
	if banIdx >= 0 && banIdx < cut {
		kept = append([]string{lines[banIdx]}, lines[cut+1:]...)
	}

	data := strings.Join(kept, "\n") + "\n"
	if err := atomicfile.Write(l.path, []byte(data), FileMode); err != nil {
		return fmt.Errorf("lockout: failed to rotate log: %w", err)
	}
	return nil
}

// Events returns logged events, oldest first. A positive limit returns only
// the most recent limit events.
func (l *Log) Events(limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.read()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Export renders events as "json" or "csv". since and until filter by event
// time; zero values mean no bound. INVALID lines carry no time and are only
// included when neither bound is set.
func (l *Log) Export(format string, since, until time.Time) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := l.read()
	if err != nil {
		return nil, err
	}

	filtered := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind == KindInvalid {
			if since.IsZero() && until.IsZero() {
				filtered = append(filtered, e)
			}
			continue
		}
		if !since.IsZero() && e.Time.Before(since) {
			continue
		}
		if !until.IsZero() && e.Time.After(until) {
			continue
		}
		filtered = append(filtered, e)
	}

	switch format {
	case "csv":
		return formatCSV(filtered), nil
	case "json":
		return json.MarshalIndent(filtered, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
}

// formatCSV formats events as CSV with proper escaping
func formatCSV(events []Event) []byte {
	var b strings.Builder
	b.WriteString("timestamp,kind,payload\n")

	for _, e := range events {
		ts := ""
		payload := e.Payload
		if e.Kind == KindInvalid {
			payload = e.Raw
		} else {
			ts = e.Time.UTC().Format(time.RFC3339Nano)
		}
		fmt.Fprintf(&b, "%s,%s,%s\n", csvEscape(ts), csvEscape(string(e.Kind)), csvEscape(payload))
	}
	return []byte(b.String())
}

// csvEscape quotes a field when it contains CSV metacharacters or starts
// with a spreadsheet formula character.
func csvEscape(field string) string {
	if field == "" {
		return field
	}

	needsQuoting := strings.ContainsAny(field[:1], "=+-@") ||
		strings.ContainsAny(field, ",\"\n\r")
	if !needsQuoting {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
