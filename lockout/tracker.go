// Package lockout implements the failed-attempt state machine guarding
// login submissions: Unlocked(attemptCount) -> Locked(lockedUntil).
// Timers are evaluated lazily against the wall clock on the next submit,
// never via scheduled callbacks.
package lockout

import (
	"fmt"
	"time"

	"github.com/spearfish/auth-gateway/autherr"
)

const (
	// DefaultThreshold is the failed-attempt count that trips the lock.
	DefaultThreshold = 5
	// DefaultLockDuration is how long a tripped lock holds.
	DefaultLockDuration = 15 * time.Minute
	// warnAt is the attempt count at which remaining-attempt warnings
	// start. Warnings are surfaced for attemptCount in [warnAt, threshold).
	warnAt = 3
)

// Tracker is the per-form lockout state machine. It is a plain value
// threaded through the form controller, never a module-level singleton,
// and is not safe for concurrent use.
type Tracker struct {
	attempts    int
	lockedUntil time.Time

	threshold int
	lockFor   time.Duration
	now       func() time.Time
}

type TrackerOption func(*Tracker)

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithThreshold overrides the failed-attempt threshold.
func WithThreshold(threshold int) TrackerOption {
	return func(t *Tracker) { t.threshold = threshold }
}

// WithLockDuration overrides how long a tripped lock holds.
func WithLockDuration(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.lockFor = d }
}

func NewTracker(options ...TrackerOption) *Tracker {
	t := &Tracker{
		threshold: DefaultThreshold,
		lockFor:   DefaultLockDuration,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Allow gates a submit attempt. While locked it rejects immediately with
// AccountLocked and the remaining wait, without any upstream call. Once
// the lock has elapsed the state resets to Unlocked(0) before credentials
// are evaluated.
func (t *Tracker) Allow() error {
	if t.lockedUntil.IsZero() {
		return nil
	}

	now := t.now()
	if now.Before(t.lockedUntil) {
		remaining := t.lockedUntil.Sub(now)
		return autherr.Newf(autherr.CodeAccountLocked, "locked for another %s", remaining.Round(time.Second)).
			WithRetryAfter(remaining)
	}

	// Lock elapsed; back to Unlocked(0).
	t.attempts = 0
	t.lockedUntil = time.Time{}
	return nil
}

// RecordFailure counts one failed submit and trips the lock once the
// threshold is reached.
func (t *Tracker) RecordFailure() {
	t.attempts++
	if t.attempts >= t.threshold {
		t.lockedUntil = t.now().Add(t.lockFor)
	}
}

// RecordSuccess resets the counter. Only a successful submit clears
// accumulated failures.
func (t *Tracker) RecordSuccess() {
	t.attempts = 0
	t.lockedUntil = time.Time{}
}

// Locked reports whether the lock currently holds.
func (t *Tracker) Locked() bool {
	return !t.lockedUntil.IsZero() && t.now().Before(t.lockedUntil)
}

// Attempts returns the current failed-attempt count.
func (t *Tracker) Attempts() int { return t.attempts }

// Warning returns the remaining-attempts warning once the count enters
// the warning window [3, threshold).
func (t *Tracker) Warning() (string, bool) {
	return AttemptsWarning(t.attempts, t.threshold)
}

// AttemptsWarning builds the remaining-attempts warning for counts in
// the window [3, threshold).
func AttemptsWarning(attempts, threshold int) (string, bool) {
	if attempts < warnAt || attempts >= threshold {
		return "", false
	}
	remaining := threshold - attempts
	plural := "s"
	if remaining == 1 {
		plural = ""
	}
	return fmt.Sprintf("%d attempt%s remaining before your account is temporarily locked", remaining, plural), true
}
