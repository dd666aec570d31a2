package lockout

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported through BanError.
var (
	ErrCurrentlyBanned = errors.New("lockout: currently banned")
	ErrTooManyAttempts = errors.New("lockout: too many failed attempts")
)

// BanError reports that an attempt was refused or that it triggered a ban.
// It matches ErrCurrentlyBanned, and also ErrTooManyAttempts when Triggered.
type BanError struct {
	Until     time.Time
	Remaining time.Duration
	Triggered bool
}

func (e *BanError) Error() string {
	if e.Triggered {
		return fmt.Sprintf("%v: locked for %s", ErrTooManyAttempts, e.Remaining.Round(time.Second))
	}
	return fmt.Sprintf("%v: try again in %s", ErrCurrentlyBanned, e.Remaining.Round(time.Second))
}

// Is reports whether target is one of the sentinels e stands for.
func (e *BanError) Is(target error) bool {
	switch target {
	case ErrCurrentlyBanned:
		return true
	case ErrTooManyAttempts:
		return e.Triggered
	}
	return false
}

// Status is the lockout state derived from the log.
type Status struct {
	Banned    bool
	Until     time.Time
	Remaining time.Duration

	// Streak is the number of consecutive failed attempts since the last
	// success or ban.
	Streak int

	// AttemptsLeft is how many more failures trigger a ban.
	AttemptsLeft int
}

// State derives the current status. A ban is in force while the clock is
// before the expiry of the most recent BAN event; it clears on its own.
func (l *Log) State() (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state()
}

func (l *Log) state() (Status, error) {
	events, err := l.read()
	if err != nil {
		return Status{}, err
	}
	now := l.clock.Now()

	var st Status
	for i := len(events) - 1; i >= 0; i-- {
		if until, ok := events[i].BanUntil(); ok {
			if now.Before(until) {
				st.Banned = true
				st.Until = until
				st.Remaining = until.Sub(now)
			}
			break
		}
	}

streak:
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Kind {
		case KindLoginFailed:
			st.Streak++
		case KindLoginOK, KindBan:
			break streak
		}
	}

	st.AttemptsLeft = l.cfg.MaxFails - st.Streak
	if st.AttemptsLeft < 0 {
		st.AttemptsLeft = 0
	}
	return st, nil
}

// Check returns a *BanError while a ban is in force.
func (l *Log) Check() error {
	st, err := l.State()
	if err != nil {
		return err
	}
	if st.Banned {
		return &BanError{Until: st.Until, Remaining: st.Remaining}
	}
	return nil
}

// TimeRemaining returns the time left on an active ban.
func (l *Log) TimeRemaining() (time.Duration, bool) {
	st, err := l.State()
	if err != nil || !st.Banned {
		return 0, false
	}
	return st.Remaining, true
}

// RecordAttempt registers the outcome of an unlock attempt.
//
// While banned nothing is written and a *BanError is returned. A success
// appends LOGIN_OK, which ends the failure streak. A failure appends
// LOGIN_FAILED; if that brings the streak to MaxFails a BAN line is written
// and a *BanError with Triggered set is returned.
func (l *Log) RecordAttempt(success bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, err := l.state()
	if err != nil {
		return err
	}
	if st.Banned {
		return &BanError{Until: st.Until, Remaining: st.Remaining}
	}

	if success {
		return l.append(KindLoginOK, "")
	}

	if err := l.append(KindLoginFailed, ""); err != nil {
		return err
	}
	if st.Streak+1 < l.cfg.MaxFails {
		return nil
	}

	until := l.clock.Now().Add(l.cfg.BanTime)
	if err := l.append(KindBan, banPayload(until)); err != nil {
		return err
	}
	return &BanError{Until: until, Remaining: l.cfg.BanTime, Triggered: true}
}
