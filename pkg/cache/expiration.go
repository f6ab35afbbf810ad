package cache

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidExpiration indicates a malformed cache expiration setting.
var ErrInvalidExpiration = errors.New("invalid cache expiration")

// NeverExpire is the expiration of a cache with no expiration setting.
const NeverExpire Expiration = -1

const day = 24 * time.Hour

// Expiration is how long a cached page stays fresh.
type Expiration time.Duration

// ParseExpiration parses an expiration setting such as "8h" or "1d".
// The value is a positive integer followed by "h" (hours) or "d" (days).
// An empty string means entries never expire.
func ParseExpiration(s string) (Expiration, error) {
	if s == "" {
		return NeverExpire, nil
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpiration, s)
	}

	var unit time.Duration
	switch s[len(s)-1] {
	case 'd':
		unit = day
	case 'h':
		unit = time.Hour
	default:
		return 0, fmt.Errorf("%w: %q must end with d or h", ErrInvalidExpiration, s)
	}

	digits := s[:len(s)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("%w: %q is not a whole number of %s", ErrInvalidExpiration, s, unitName(unit))
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidExpiration, s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidExpiration, s)
	}
	if n > int64(time.Duration(1<<63-1)/unit) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidExpiration, s)
	}

	return Expiration(time.Duration(n) * unit), nil
}

// Never reports whether entries never expire.
func (e Expiration) Never() bool {
	return e < 0
}

// Duration returns the expiration window. It is negative for NeverExpire.
func (e Expiration) Duration() time.Duration {
	return time.Duration(e)
}

// Milliseconds returns the expiration window in milliseconds, or -1 for NeverExpire.
func (e Expiration) Milliseconds() int64 {
	if e.Never() {
		return -1
	}
	return e.Duration().Milliseconds()
}

// Expired reports whether an entry written at cachedAt is stale at now.
// An entry is stale only when its age is strictly greater than the window.
func (e Expiration) Expired(cachedAt, now time.Time) bool {
	if e.Never() {
		return false
	}
	return now.Sub(cachedAt) > e.Duration()
}

// String returns the setting in its configuration form.
func (e Expiration) String() string {
	switch d := time.Duration(e); {
	case e.Never():
		return "never"
	case d%day == 0:
		return strconv.FormatInt(int64(d/day), 10) + "d"
	default:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	}
}

func unitName(unit time.Duration) string {
	if unit == day {
		return "days"
	}
	return "hours"
}
