// Package expiry maps the expiration shapes callers hand to the cache
// (nothing, a duration, whole seconds or an absolute time) onto a TTL.
package expiry

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/intertime"
)

// ErrInvalidExpiration is returned by Coerce for unsupported expiration values.
var ErrInvalidExpiration = errors.New("expiry: invalid expiration")

// TTL is either "never expires" or a duration until expiry.
// The zero TTL never expires.
type TTL struct {
	d       time.Duration
	expires bool
}

// Never is the TTL of values stored without expiry.
var Never = TTL{}

// After returns a TTL expiring d from now. d may be zero or negative.
func After(d time.Duration) TTL {
	return TTL{d: d, expires: true}
}

// Duration returns the time until expiry and whether the TTL expires at all.
func (t TTL) Duration() (time.Duration, bool) {
	return t.d, t.expires
}

// IsNever reports whether t never expires.
func (t TTL) IsNever() bool {
	return !t.expires
}

// Elapsed reports whether t expires and has no time left.
func (t TTL) Elapsed() bool {
	return t.expires && t.d <= 0
}

// Seconds returns the whole seconds until expiry, rounded down.
func (t TTL) Seconds() int64 {
	return int64(t.d / time.Second)
}

// Deadline returns the absolute expiry time relative to now.
func (t TTL) Deadline(now time.Time) (time.Time, bool) {
	if !t.expires {
		return time.Time{}, false
	}
	return now.Add(t.d), true
}

func (t TTL) String() string {
	if !t.expires {
		return "never"
	}
	return t.d.String()
}

// Coerce converts v into a TTL.
//
// Accepted shapes: nil (never), TTL, time.Duration, intertime.Duration,
// any integer kind (whole seconds) and time.Time or *time.Time (v - now,
// not clamped). Second counts beyond the range of time.Duration are
// rejected rather than wrapped. Anything else fails with ErrInvalidExpiration.
func Coerce(v any, now time.Time) (TTL, error) {
	switch val := v.(type) {
	case nil:
		return Never, nil
	case TTL:
		return val, nil
	case time.Duration:
		return After(val), nil
	case intertime.Duration:
		return After(val.Std()), nil
	case int:
		return seconds(int64(val))
	case int8:
		return seconds(int64(val))
	case int16:
		return seconds(int64(val))
	case int32:
		return seconds(int64(val))
	case int64:
		return seconds(val)
	case uint:
		return unsignedSeconds(uint64(val))
	case uint8:
		return unsignedSeconds(uint64(val))
	case uint16:
		return unsignedSeconds(uint64(val))
	case uint32:
		return unsignedSeconds(uint64(val))
	case uint64:
		return unsignedSeconds(uint64(val))
	case time.Time:
		return After(val.Sub(now)), nil
	case *time.Time:
		if val == nil {
			return Never, nil
		}
		return After(val.Sub(now)), nil
	default:
		return Never, fmt.Errorf("%w: unsupported type %T", ErrInvalidExpiration, v)
	}
}

// maxSeconds is the largest whole-second count a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

func seconds(n int64) (TTL, error) {
	if n > maxSeconds || n < -maxSeconds {
		return Never, fmt.Errorf("%w: %d seconds out of range", ErrInvalidExpiration, n)
	}
	return After(time.Duration(n) * time.Second), nil
}

func unsignedSeconds(n uint64) (TTL, error) {
	if n > uint64(maxSeconds) {
		return Never, fmt.Errorf("%w: %d seconds out of range", ErrInvalidExpiration, n)
	}
	return seconds(int64(n))
}
