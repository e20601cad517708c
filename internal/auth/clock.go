package auth

import "time"

// Clock supplies the current time. Lockout expiry and token validity are
// both evaluated against it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// RealClock returns a Clock backed by time.Now in UTC.
func RealClock() Clock { return realClock{} }
