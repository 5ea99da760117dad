// Package calendar parses and compares the day ranges reservations are made over.
package calendar

import (
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
)

// Layout is the only accepted wire format for dates.
const Layout = "2006-01-02"

var (
	ErrMissingDate   = apperror.New(http.StatusBadRequest, "start_date and end_date are required")
	ErrBadFormat     = apperror.New(http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
	ErrStartInPast   = apperror.New(http.StatusBadRequest, "start date cannot be in the past")
	ErrInvertedRange = apperror.New(http.StatusBadRequest, "start date must be before end date")
)

// Interval is the half-open day range [Start, End).
// A reservation over an Interval occupies its start day but not its end day.
type Interval struct {
	start time.Time
	end   time.Time
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMissingDate
	}
	t, err := time.ParseInLocation(Layout, raw, time.UTC)
	if err != nil {
		return time.Time{}, apperror.Wrap(err, ErrBadFormat)
	}
	return t, nil
}

// CheckNotPast rejects a start day earlier than today.
func CheckNotPast(start, today time.Time) error {
	if Day(start).Before(Day(today)) {
		return ErrStartInPast
	}
	return nil
}

// NewInterval builds [start, end) from two days. start must come strictly before end.
func NewInterval(start, end time.Time) (Interval, error) {
	s, e := Day(start), Day(end)
	if !s.Before(e) {
		return Interval{}, ErrInvertedRange
	}
	return Interval{start: s, end: e}, nil
}

// ParseInterval validates a pair of raw dates for a new booking.
// Failures are reported in order: format, start in the past, inverted range.
func ParseInterval(rawStart, rawEnd string, today time.Time) (Interval, error) {
	start, err := ParseDate(rawStart)
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseDate(rawEnd)
	if err != nil {
		return Interval{}, err
	}
	if err := CheckNotPast(start, today); err != nil {
		return Interval{}, err
	}
	return NewInterval(start, end)
}

func (i Interval) Start() time.Time { return i.start }

func (i Interval) End() time.Time { return i.end }

const secondsPerDay = 24 * 60 * 60

// Days is the number of nights in the interval. Bounds are UTC midnights, so
// whole-day Unix arithmetic is exact and does not saturate like time.Duration.
func (i Interval) Days() int {
	return int(i.end.Unix()/secondsPerDay - i.start.Unix()/secondsPerDay)
}

func (i Interval) IsZero() bool {
	return i.start.IsZero() && i.end.IsZero()
}

func (i Interval) Equal(o Interval) bool {
	return i.start.Equal(o.start) && i.end.Equal(o.end)
}

// Overlaps reports whether the two ranges share at least one day.
// Back-to-back ranges, where one ends on the day the other starts, do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.start.Before(o.end) && o.start.Before(i.end)
}

// Contains reports whether day falls inside the range.
func (i Interval) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(i.start) && d.Before(i.end)
}

func (i Interval) String() string {
	return "[" + i.start.Format(Layout) + ", " + i.end.Format(Layout) + ")"
}
