package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	iv, err := NewInterval(date(start), date(end))
	require.NoError(t, err)
	return iv
}

func TestParseInterval(t *testing.T) {
	today := date("2025-01-10")

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
		days    int
	}{
		{"valid", "2025-03-01", "2025-03-03", nil, 2},
		{"starts today", "2025-01-10", "2025-01-11", nil, 1},
		{"missing start", "", "2025-03-03", ErrMissingDate, 0},
		{"missing end", "2025-03-01", " ", ErrMissingDate, 0},
		{"bad format", "03/01/2025", "2025-03-03", ErrBadFormat, 0},
		{"impossible day", "2025-02-30", "2025-03-03", ErrBadFormat, 0},
		{"start in the past", "2025-01-09", "2025-01-12", ErrStartInPast, 0},
		{"end equals start", "2025-03-01", "2025-03-01", ErrInvertedRange, 0},
		{"end before start", "2025-03-05", "2025-03-01", ErrInvertedRange, 0},
		{"past wins over inverted", "2025-01-01", "2024-12-01", ErrStartInPast, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, err := ParseInterval(tt.start, tt.end, today)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.days, iv.Days())
			assert.Equal(t, tt.start, iv.Start().Format(Layout))
			assert.Equal(t, tt.end, iv.End().Format(Layout))
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := mustInterval(t, "2025-03-01", "2025-03-03")

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", mustInterval(t, "2025-03-01", "2025-03-03"), true},
		{"back to back after", mustInterval(t, "2025-03-03", "2025-03-05"), false},
		{"back to back before", mustInterval(t, "2025-02-27", "2025-03-01"), false},
		{"shares last night", mustInterval(t, "2025-03-02", "2025-03-04"), true},
		{"contains", mustInterval(t, "2025-02-01", "2025-04-01"), true},
		{"disjoint", mustInterval(t, "2025-04-01", "2025-04-02"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestContains(t *testing.T) {
	iv := mustInterval(t, "2025-03-01", "2025-03-03")

	assert.True(t, iv.Contains(date("2025-03-01")))
	assert.True(t, iv.Contains(date("2025-03-02").Add(20*time.Hour)))
	assert.False(t, iv.Contains(date("2025-03-03")))
	assert.False(t, iv.Contains(date("2025-02-28")))
}

func TestNewIntervalTruncatesToDays(t *testing.T) {
	start := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)
	end := time.Date(2025, 3, 4, 1, 0, 0, 0, time.UTC)

	iv, err := NewInterval(start, end)
	require.NoError(t, err)
	assert.Equal(t, 3, iv.Days())
	assert.Equal(t, "[2025-03-01, 2025-03-04)", iv.String())
}

func TestTodayUsesClock(t *testing.T) {
	at := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, date("2025-06-15"), Today(FixedClock{At: at}))
}

func TestDaysOverLongRanges(t *testing.T) {
	tests := []struct {
		start, end string
		days       int
	}{
		{"2025-01-01", "2325-01-01", 109572},
		{"2025-01-01", "9999-12-31", 2912807},
		{"2024-02-28", "2024-03-01", 2},
	}
	for _, tt := range tests {
		t.Run(tt.start+"_"+tt.end, func(t *testing.T) {
			iv, err := NewInterval(date(tt.start), date(tt.end))
			require.NoError(t, err)
			assert.Equal(t, tt.days, iv.Days())
		})
	}
}
