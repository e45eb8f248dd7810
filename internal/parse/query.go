package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"predictive-maintenance-backend/internal/model"
)

var intervalRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*(h|hr|hour|d|day)s?\s*$`)

// Bounded parses raw as an integer within [lo, hi]. An empty string yields def.
func Bounded(raw string, def, lo, hi int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d is outside [%d, %d]", n, lo, hi)
	}
	return n, nil
}

// Days parses a look-back window in days: 1..365, default 7.
func Days(raw string) (int, error) {
	return Bounded(raw, 7, 1, 365)
}

// Limit parses a row limit: 1..1000, default 100.
func Limit(raw string) (int, error) {
	return Bounded(raw, 100, 1, 1000)
}

// Skip parses a pagination offset, default 0.
func Skip(raw string) (int, error) {
	return Bounded(raw, 0, 0, int(^uint32(0)>>1))
}

// ID parses a positive row identifier.
func ID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// Time accepts RFC 3339 timestamps or plain YYYY-MM-DD dates, the latter
// read as UTC midnight.
func Time(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC 3339", raw)
}

// Window resolves optional start/end query values into a half-open range.
// A missing end is now; a missing start is span before end.
func Window(startRaw, endRaw string, now time.Time, span time.Duration) (time.Time, time.Time, error) {
	end := now
	if endRaw != "" {
		t, err := Time(endRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	start := end.Add(-span)
	if startRaw != "" {
		t, err := Time(startRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}
	return start, end, nil
}

// Interval parses resampling intervals such as "hour", "day", "6h" or "2d".
// An empty string yields one hour.
func Interval(raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Hour, nil
	}
	m := intervalRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, fmt.Errorf("invalid interval %q, expected hour or day", raw)
	}
	n := 1
	if m[1] != "" {
		var err error
		if n, err = strconv.Atoi(m[1]); err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid interval %q", raw)
		}
	}
	unit := time.Hour
	if strings.HasPrefix(strings.ToLower(m[2]), "d") {
		unit = 24 * time.Hour
	}
	return time.Duration(n) * unit, nil
}

// Status validates a machine status value.
func Status(raw string) (model.MachineStatus, error) {
	s := model.MachineStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		names := make([]string, len(model.Statuses))
		for i, v := range model.Statuses {
			names[i] = string(v)
		}
		return "", fmt.Errorf("Invalid status. Must be one of: %s", strings.Join(names, ", "))
	}
	return s, nil
}
