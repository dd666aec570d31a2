package lockout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/forest6511/credsafe/internal/testutil"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credsafe.log")
	l, err := Open(path, Config{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != FileMode {
		t.Errorf("log permissions = %04o, want %04o", info.Mode().Perm(), FileMode)
	}
	if l.Config() != DefaultConfig() {
		t.Errorf("Config() = %+v, want defaults", l.Config())
	}
}

func TestOpenInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative max fails", Config{MaxFails: -1}},
		{"sub-second ban", Config{BanTime: time.Millisecond}},
		{"max logs too small", Config{MaxFails: 5, MaxLogs: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(filepath.Join(t.TempDir(), "credsafe.log"), tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestAppendFormat(t *testing.T) {
	l, clock := openTestLog(t, Config{})

	if err := l.Info("first line\nsecond line"); err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	clock.Advance(1500 * time.Millisecond)
	if err := l.Append(KindLoginFailed, ""); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	base := testutil.FixedClock().Now().UnixMilli()
	want := fmt.Sprintf("%d INFO first line second line\n%d LOGIN_FAILED\n", base, base+1500)
	if string(data) != want {
		t.Errorf("log content = %q, want %q", data, want)
	}
}

func TestAppendRejectsInvalidKind(t *testing.T) {
	l, _ := openTestLog(t, Config{})

	for _, kind := range []Kind{KindInvalid, "WARN", ""} {
		if err := l.Append(kind, "x"); !errors.Is(err, ErrInvalidKind) {
			t.Errorf("Append(%q) error = %v, want ErrInvalidKind", kind, err)
		}
	}
	if n := countLines(t, l); n != 0 {
		t.Errorf("log has %d lines, want 0", n)
	}
}

func TestRotationKeepsNewestLines(t *testing.T) {
	const maxLogs = 10
	l, _ := openTestLog(t, Config{MaxLogs: maxLogs})

	for i := 0; i < 25; i++ {
		if err := l.Info(fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("Info() error = %v", err)
		}
	}

	events, err := l.Events(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != maxLogs {
		t.Fatalf("log has %d lines, want %d", len(events), maxLogs)
	}
	for i, e := range events {
		want := fmt.Sprintf("msg %d", 15+i)
		if e.Payload != want {
			t.Errorf("line %d payload = %q, want %q", i, e.Payload, want)
		}
	}
}

func TestRotationDefaultBound(t *testing.T) {
	l, _ := openTestLog(t, Config{})

	for i := 0; i < DefaultMaxLogs+1; i++ {
		if err := l.Debug("x"); err != nil {
			t.Fatal(err)
		}
	}
	if n := countLines(t, l); n != DefaultMaxLogs {
		t.Errorf("log has %d lines, want exactly %d", n, DefaultMaxLogs)
	}
}

func TestRotationKeepsActiveBan(t *testing.T) {
	const maxLogs = 10
	l, clock := openTestLog(t, Config{MaxLogs: maxLogs})

	fail(t, l, DefaultMaxFails-1)
	_ = l.RecordAttempt(false)

	for i := 0; i < 2*maxLogs; i++ {
		if err := l.Info(fmt.Sprintf("info %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	events, err := l.Events(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != maxLogs {
		t.Fatalf("log has %d lines, want %d", len(events), maxLogs)
	}
	if events[0].Kind != KindBan {
		t.Errorf("oldest line kind = %s, want BAN", events[0].Kind)
	}
	if last := events[len(events)-1].Payload; last != fmt.Sprintf("info %d", 2*maxLogs-1) {
		t.Errorf("newest line payload = %q", last)
	}
	if err := l.Check(); !errors.Is(err, ErrCurrentlyBanned) {
		t.Errorf("Check() error = %v, want ban to survive rotation", err)
	}

	// Once expired, the BAN line ages out like any other
	clock.Advance(DefaultBanTime)
	for i := 0; i < maxLogs; i++ {
		if err := l.Info("after"); err != nil {
			t.Fatal(err)
		}
	}
	events, err = l.Events(0)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		if e.Kind == KindBan {
			t.Error("expired BAN line was retained")
		}
	}
}

func TestEventsLimit(t *testing.T) {
	l, _ := openTestLog(t, Config{})
	for i := 0; i < 5; i++ {
		if err := l.Info(fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	events, err := l.Events(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Payload != "msg 3" || events[1].Payload != "msg 4" {
		t.Errorf("Events(2) = %+v", events)
	}
}

func TestExport(t *testing.T) {
	l, clock := openTestLog(t, Config{})
	if err := l.Info("=SUM(A1)"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Hour)
	if err := l.Append(KindLoginFailed, ""); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_WRONLY, FileMode)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("broken, line\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	t.Run("csv", func(t *testing.T) {
		data, err := l.Export("csv", time.Time{}, time.Time{})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 4 {
			t.Fatalf("csv has %d lines, want 4:\n%s", len(lines), data)
		}
		if lines[0] != "timestamp,kind,payload" {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.HasSuffix(lines[1], `,INFO,"=SUM(A1)"`) {
			t.Errorf("formula payload not quoted: %q", lines[1])
		}
		if lines[3] != `,INVALID,"broken, line"` {
			t.Errorf("invalid line = %q", lines[3])
		}
	})

	t.Run("json with since", func(t *testing.T) {
		since := clock.Now().Add(-time.Minute)
		data, err := l.Export("json", since, time.Time{})
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(events) != 1 || events[0].Kind != KindLoginFailed {
			t.Errorf("Export(json, since) = %+v, want only the LOGIN_FAILED event", events)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := l.Export("xml", time.Time{}, time.Time{}); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Export(xml) error = %v, want ErrInvalidFormat", err)
		}
	})
}

func TestCSVEscape(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"plain":      "plain",
		"a,b":        `"a,b"`,
		`say "hi"`:   `"say ""hi"""`,
		"-1":         `"-1"`,
		"@cmd":       `"@cmd"`,
		"+1":         `"+1"`,
		"日本,語":      `"日本,語"`,
		"line\nline": "\"line\nline\"",
	}
	for in, want := range tests {
		if got := csvEscape(in); got != want {
			t.Errorf("csvEscape(%q) = %q, want %q", in, got, want)
		}
	}
}
