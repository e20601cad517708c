package auth

import (
	"time"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockDuration     = 2 * time.Hour
)

// LockoutPolicy decides lock state from an account's attempt counter and
// lockUntil timestamp. A lock expires lazily: nothing sweeps expired
// locks, the next check simply sees lockUntil in the past.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// NewLockoutPolicy returns a policy with the given threshold and duration;
// non-positive values select the defaults rather than locking on the
// first failure.
func NewLockoutPolicy(maxAttempts int, lockDuration time.Duration) LockoutPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return LockoutPolicy{MaxAttempts: maxAttempts, LockDuration: lockDuration}
}

// IsLocked reports whether the account is inside an active lock window.
func (p LockoutPolicy) IsLocked(a *models.Account, now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// LockExpired reports whether the account carries a lock that has already
// run out. The next failure then starts a fresh count.
func (p LockoutPolicy) LockExpired(a *models.Account, now time.Time) bool {
	return a.LockUntil != nil && !a.LockUntil.After(now)
}

// ShouldLock reports whether a post-increment attempt count reaches the
// threshold.
func (p LockoutPolicy) ShouldLock(attempts int) bool {
	return attempts >= p.MaxAttempts
}

func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.LockDuration)
}
