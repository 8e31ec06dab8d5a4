package schedule

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadDuration is returned by ParseDuration for input it cannot interpret.
// Check with errors.Is.
var ErrBadDuration = errors.New("schedule: unparseable duration")

var unitSeconds = map[string]int64{
	"s": 1, "sec": 1, "second": 1, "seconds": 1,
	"m": 60, "min": 60, "minute": 60, "minutes": 60,
	"h": 3600, "hr": 3600, "hour": 3600, "hours": 3600,
	"d": 86400, "day": 86400, "days": 86400,
	"w": 604800, "week": 604800, "weeks": 604800,
	"mo": 2592000, "month": 2592000, "months": 2592000,
	"y": 31536000, "year": 31536000, "years": 31536000,
}

var durationPart = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+)?`)

// ParseDuration converts a human duration like "1d", "1h 30m" or "90" (bare
// seconds) into seconds. Fractions are allowed ("1.5d") and the result is
// rounded to the nearest second.
func ParseDuration(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty input", ErrBadDuration)
	}

	var total float64
	matched := false
	for _, part := range durationPart.FindAllStringSubmatch(trimmed, -1) {
		val, err := strconv.ParseFloat(part[1], 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(part[2])
		if unit == "" {
			total += val // bare number, seconds
			matched = true
			continue
		}
		secs, ok := unitSeconds[unit]
		if !ok {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrBadDuration, part[2])
		}
		total += val * float64(secs)
		matched = true
	}
	if !matched {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}
	return int64(math.Round(total)), nil
}

// FormatDuration renders seconds as a short duration like "1h 30m" or "2d".
// At most the two largest units are kept.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	units := []struct {
		label string
		secs  int64
	}{
		{"y", 31536000},
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	remaining := seconds
	var parts []string
	for _, u := range units {
		if remaining >= u.secs {
			count := remaining / u.secs
			remaining -= count * u.secs
			parts = append(parts, fmt.Sprintf("%d%s", count, u.label))
		}
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, " ")
}
