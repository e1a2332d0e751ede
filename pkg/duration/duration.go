// Package duration parses human-readable retention periods such as "30d" or "weekly".
package duration

import (
	"math"
	"strconv"
	"strings"
	"time"

	errUtils "github.com/cloudposse/weave/errors"
)

// Seconds per named period.
const (
	secondsPerMinute = 60
	secondsPerHour   = 3600
	secondsPerDay    = 86400
	secondsPerWeek   = 604800
	secondsPerMonth  = 2592000  // 30 days.
	secondsPerYear   = 31536000 // 365 days.

	base10    = 10
	bitSize64 = 64

	maxDurationSeconds = math.MaxInt64 / int64(time.Second)
)

var unitSeconds = map[byte]int64{
	's': 1,
	'm': secondsPerMinute,
	'h': secondsPerHour,
	'd': secondsPerDay,
	'w': secondsPerWeek,
}

var keywordSeconds = map[string]int64{
	"minute":  secondsPerMinute,
	"hourly":  secondsPerHour,
	"daily":   secondsPerDay,
	"weekly":  secondsPerWeek,
	"monthly": secondsPerMonth,
	"yearly":  secondsPerYear,
}

// Parse parses a period into a positive number of seconds.
//
// Accepted forms are integer seconds ("3600"), a count with a unit suffix
// ("30s", "5m", "1h", "7d", "2w") and the keywords minute, hourly, daily,
// weekly, monthly and yearly.
func Parse(s string) (int64, error) {
	value := strings.TrimSpace(s)

	if n, err := strconv.ParseInt(value, base10, bitSize64); err == nil {
		if n > 0 {
			return n, nil
		}
		return 0, invalid(value, "Duration must be positive")
	}

	if seconds, ok := keywordSeconds[value]; ok {
		return seconds, nil
	}

	if len(value) < 2 {
		return 0, invalid(value, "Unrecognized duration format")
	}

	unit := value[len(value)-1]
	n, err := strconv.ParseInt(value[:len(value)-1], base10, bitSize64)
	if err != nil || n <= 0 {
		return 0, invalid(value, "Unrecognized duration format")
	}

	multiplier, ok := unitSeconds[unit]
	if !ok {
		return 0, errUtils.Build(errUtils.ErrInvalidDuration).
			WithExplanation("Unrecognized duration unit").
			WithContext("unit", string(unit)).
			WithHint("Use 's', 'm', 'h', 'd' or 'w'").
			Err()
	}

	if n > math.MaxInt64/multiplier {
		return 0, invalid(value, "Duration is too large")
	}
	return n * multiplier, nil
}

// ParseDuration is Parse as a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	seconds, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if seconds > maxDurationSeconds {
		return 0, invalid(strings.TrimSpace(s), "Duration is too large")
	}
	return time.Duration(seconds) * time.Second, nil
}

func invalid(value, explanation string) error {
	return errUtils.Build(errUtils.ErrInvalidDuration).
		WithExplanation(explanation).
		WithContext("value", value).
		WithHint("Use formats like '1h', '30m', '7d', '2w', or keywords like 'daily', 'weekly'").
		WithExitCode(errUtils.ExitCodeUsage).
		Err()
}
