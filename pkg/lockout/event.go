package lockout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a log line.
type Kind string

// Event kinds. Tags are matched exactly, upper case.
const (
	KindInfo        Kind = "INFO"
	KindDebug       Kind = "DEBUG"
	KindError       Kind = "ERROR"
	KindLoginFailed Kind = "LOGIN_FAILED"
	KindLoginOK     Kind = "LOGIN_OK"
	KindBan         Kind = "BAN"

	// KindInvalid marks a line that could not be parsed. It is never written.
	KindInvalid Kind = "INVALID"
)

// banUntilPrefix starts the payload of a BAN line.
const banUntilPrefix = "until="

// writable reports whether k may be appended to the log.
func (k Kind) writable() bool {
	switch k {
	case KindInfo, KindDebug, KindError, KindLoginFailed, KindLoginOK, KindBan:
		return true
	}
	return false
}

// Event is one parsed log line.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Payload string    `json:"payload,omitempty"`

	// Raw holds the original text of an INVALID line.
	Raw string `json:"raw,omitempty"`
}

// String formats e as a log line without the trailing newline.
func (e Event) String() string {
	if e.Kind == KindInvalid {
		return e.Raw
	}
	line := strconv.FormatInt(e.Time.UnixMilli(), 10) + " " + string(e.Kind)
	if e.Payload != "" {
		line += " " + e.Payload
	}
	return line
}

// BanUntil returns the expiry of a BAN event.
func (e Event) BanUntil() (time.Time, bool) {
	if e.Kind != KindBan {
		return time.Time{}, false
	}
	return parseBanUntil(e.Payload)
}

func parseBanUntil(payload string) (time.Time, bool) {
	v, ok := strings.CutPrefix(payload, banUntilPrefix)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func banPayload(until time.Time) string {
	return fmt.Sprintf("%s%d", banUntilPrefix, until.UnixMilli())
}

// ParseEvent parses one log line. Lines that do not match
// "<unix_millis> <KIND> [payload]" come back as KindInvalid rather than an
// error, as does a BAN line without a readable expiry.
func ParseEvent(line string) Event {
	invalid := Event{Kind: KindInvalid, Raw: line}

	fields := strings.SplitN(line, " ", 3)
	if len(fields) < 2 {
		return invalid
	}
	ms, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || ms < 0 {
		return invalid
	}
	kind := Kind(fields[1])
	if !kind.writable() {
		return invalid
	}

	e := Event{Time: time.UnixMilli(ms), Kind: kind}
	if len(fields) == 3 {
		e.Payload = fields[2]
	}
	if kind == KindBan {
		if _, ok := parseBanUntil(e.Payload); !ok {
			return invalid
		}
	}
	return e
}

// sanitizePayload keeps a payload on one line.
func sanitizePayload(p string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(p))
}
