package auth

import "time"

// Clock supplies the current instant.
type Clock func() time.Time

// SystemClock reads the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
