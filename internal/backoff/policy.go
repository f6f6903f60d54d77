// Package backoff decides how long to wait before re-issuing a failed request.
//
// Server guidance wins: a valid Retry-After header (delta-seconds or an
// HTTP-date) is honored exactly, clamped to RetryAfterCap. Without one the
// delay is exponential with full jitter: uniform in [0, Base*2^(attempt-1)),
// with the exponential term capped at Max.
package backoff

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBase          = 1 * time.Second
	DefaultMax           = 30 * time.Second
	DefaultRetryAfterCap = 120 * time.Second
	DefaultMaxAttempts   = 5
)

// Response is the slice of a failed response the policy looks at
type Response struct {
	StatusCode int
	RetryAfter string
}

// Policy computes retry delays. The zero value is usable and behaves like
// DefaultPolicy.
type Policy struct {
	// Base is the first exponential step
	Base time.Duration

	// Max caps the exponential term
	Max time.Duration

	// RetryAfterCap caps server-provided waits
	RetryAfterCap time.Duration

	// MaxAttempts is the total number of attempts per request, first included
	MaxAttempts int

	// Rand returns a uniform value in [0, n); nil uses math/rand/v2
	Rand func(n int64) int64

	// Now is the clock used to resolve HTTP-date Retry-After values
	Now func() time.Time
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		Base:          DefaultBase,
		Max:           DefaultMax,
		RetryAfterCap: DefaultRetryAfterCap,
		MaxAttempts:   DefaultMaxAttempts,
	}
}

// Attempts returns the configured attempt budget, at least 1
func (p Policy) Attempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// NextDelay returns the wait before attempt+1, given that attempt (1-based)
// just failed with resp
func (p Policy) NextDelay(attempt int, resp Response) time.Duration {
	if d, ok := p.RetryAfter(resp.RetryAfter); ok {
		return d
	}
	return p.Exponential(attempt)
}

// RetryAfter resolves a Retry-After header value against the cap
func (p Policy) RetryAfter(value string) (time.Duration, bool) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	d, ok := ParseRetryAfter(value, now())
	if !ok {
		return 0, false
	}
	limit := p.RetryAfterCap
	if limit <= 0 {
		limit = DefaultRetryAfterCap
	}
	return min(d, limit), true
}

// Exponential returns the jittered delay for attempt (1-based)
func (p Policy) Exponential(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = DefaultBase
	}
	ceiling := p.Max
	if ceiling <= 0 {
		ceiling = DefaultMax
	}
	if attempt < 1 {
		attempt = 1
	}

	computed := base
	for i := 1; i < attempt && computed < ceiling; i++ {
		computed *= 2
	}
	computed = min(computed, ceiling)
	if computed <= 0 {
		return 0
	}

	random := p.Rand
	if random == nil {
		random = rand.Int64N
	}
	return time.Duration(random(int64(computed)))
}

// ParseRetryAfter parses delta-seconds or an HTTP-date relative to now.
// Dates in the past resolve to zero.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		// Guard the multiplication; anything this large is clamped by the cap anyway.
		if secs > int64(24*time.Hour/time.Second) {
			secs = int64(24 * time.Hour / time.Second)
		}
		return time.Duration(secs) * time.Second, true
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := when.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

// Retriable reports whether a status code is in the retriable set
func Retriable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
