package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"predictive-maintenance-backend/internal/model"
)

func TestDaysAndLimit(t *testing.T) {
	testCases := []struct {
		name      string
		fn        func(string) (int, error)
		raw       string
		expected  int
		expectErr bool
	}{
		{name: "days default", fn: Days, raw: "", expected: 7},
		{name: "days lower bound", fn: Days, raw: "1", expected: 1},
		{name: "days upper bound", fn: Days, raw: "365", expected: 365},
		{name: "days zero", fn: Days, raw: "0", expectErr: true},
		{name: "days too large", fn: Days, raw: "366", expectErr: true},
		{name: "days not a number", fn: Days, raw: "week", expectErr: true},
		{name: "limit default", fn: Limit, raw: "", expected: 100},
		{name: "limit max", fn: Limit, raw: "1000", expected: 1000},
		{name: "limit too large", fn: Limit, raw: "1001", expectErr: true},
		{name: "skip default", fn: Skip, raw: "", expected: 0},
		{name: "skip negative", fn: Skip, raw: "-1", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestID(t *testing.T) {
	id, err := ID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := ID(raw)
		assert.Error(t, err, raw)
	}
}

func TestTime(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  time.Time
		expectErr bool
	}{
		{name: "date only", raw: "2024-03-01", expected: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339 with offset", raw: "2024-03-01T10:00:00+02:00", expected: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
		{name: "naive timestamp", raw: "2024-03-01T10:00:00", expected: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "garbage", raw: "yesterday", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Time(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.True(t, tc.expected.Equal(got), "got %v", got)
		})
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)
	span := 7 * 24 * time.Hour

	start, end, err := Window("", "", now, span)
	assert.NoError(t, err)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-span), start)

	start, end, err = Window("2024-03-01", "2024-03-02", now, span)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), end)

	start, _, err = Window("", "2024-03-02", now, span)
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 24, 0, 0, 0, 0, time.UTC), start)

	_, _, err = Window("2024-03-02", "2024-03-02", now, span)
	assert.Error(t, err)
	_, _, err = Window("bad", "", now, span)
	assert.Error(t, err)
}

func TestInterval(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  time.Duration
		expectErr bool
	}{
		{raw: "", expected: time.Hour},
		{raw: "hour", expected: time.Hour},
		{raw: "day", expected: 24 * time.Hour},
		{raw: "1H", expected: time.Hour},
		{raw: "6h", expected: 6 * time.Hour},
		{raw: "2days", expected: 48 * time.Hour},
		{raw: "0h", expectErr: true},
		{raw: "week", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Interval(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestStatus(t *testing.T) {
	s, err := Status("Warning")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusWarning, s)

	_, err = Status("broken")
	assert.EqualError(t, err, "Invalid status. Must be one of: operational, maintenance, warning, critical")
}
