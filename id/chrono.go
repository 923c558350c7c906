package id

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chrono keys identify transactions within a principal. The key encodes the
// creation instant inverted, so that lexicographic order matches reverse
// chronological order: a plain ascending range scan over (principal, id)
// returns the newest transactions first. A random suffix keeps keys written
// at the same instant unique.
//
// Format: "<19 digits of math.MaxInt64 - unixnano>-<uuid>".

const chronoDigits = 19

// NewChrono returns a fresh chrono key for the given creation instant.
// The instant is truncated to millisecond precision: day-end range bounds
// are millisecond instants, so a sub-millisecond key would sort past the
// 23:59:59.999 bound and fall outside every day's range.
func NewChrono(t time.Time) string {
	inverted := math.MaxInt64 - t.UTC().Truncate(time.Millisecond).UnixNano()

	return fmt.Sprintf("%0*d-%s", chronoDigits, inverted, uuid.NewString())
}

// ChronoTime decodes the creation instant a chrono key encodes.
func ChronoTime(key string) (time.Time, error) {
	digits, _, _ := strings.Cut(key, "-")
	if len(digits) != chronoDigits {
		return time.Time{}, fmt.Errorf("id: chrono key %q: malformed instant", key)
	}

	inverted, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("id: chrono key %q: %w", key, err)
	}

	return time.Unix(0, math.MaxInt64-inverted).UTC(), nil
}

// ChronoRange returns the inclusive key bounds covering every chrono key
// whose instant falls in [from, to]. Because keys invert time, the low bound
// derives from the later instant. The high bound appends '~', which sorts
// after the '-' separator and all digits, so keys with any suffix match.
func ChronoRange(from, to time.Time) (lo, hi string) {
	lo = fmt.Sprintf("%0*d", chronoDigits, math.MaxInt64-to.UTC().UnixNano())
	hi = fmt.Sprintf("%0*d~", chronoDigits, math.MaxInt64-from.UTC().UnixNano())

	return lo, hi
}
