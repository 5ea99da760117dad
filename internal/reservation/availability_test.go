package reservation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
)

func period(t *testing.T, start, end string) calendar.Interval {
	t.Helper()
	s, err := time.Parse(calendar.Layout, start)
	require.NoError(t, err)
	e, err := time.Parse(calendar.Layout, end)
	require.NoError(t, err)
	iv, err := calendar.NewInterval(s, e)
	require.NoError(t, err)
	return iv
}

func TestFits(t *testing.T) {
	march := period(t, "2025-03-01", "2025-03-03")
	existing := []*Reservation{
		{ID: "a", SpaceID: "s1", Period: march, Quantity: 2, Status: StatusPending},
		{ID: "b", SpaceID: "s1", Period: period(t, "2025-03-02", "2025-03-04"), Quantity: 1, Status: StatusConfirmed},
		{ID: "c", SpaceID: "s1", Period: march, Quantity: 5, Status: StatusCancelled},
		{ID: "d", SpaceID: "s2", Period: march, Quantity: 9, Status: StatusConfirmed},
	}

	tests := []struct {
		name     string
		c        Candidate
		capacity int
		booked   int
		fits     bool
	}{
		{"full window", Candidate{SpaceID: "s1", Period: march, Quantity: 1}, 3, 3, false},
		{"room left", Candidate{SpaceID: "s1", Period: march, Quantity: 1}, 4, 3, true},
		{"exactly at capacity", Candidate{SpaceID: "s1", Period: march, Quantity: 2}, 5, 3, true},
		{"back to back is free", Candidate{SpaceID: "s1", Period: period(t, "2025-03-04", "2025-03-06"), Quantity: 3}, 3, 0, true},
		{"touching a's end only overlaps b", Candidate{SpaceID: "s1", Period: period(t, "2025-03-03", "2025-03-05"), Quantity: 2}, 3, 1, true},
		{"excludes itself", Candidate{SpaceID: "s1", Period: march, Quantity: 2, ExcludeID: "a"}, 3, 1, true},
		{"other space ignored", Candidate{SpaceID: "s2", Period: period(t, "2025-04-01", "2025-04-02"), Quantity: 1}, 1, 0, true},
		{"quantity above capacity", Candidate{SpaceID: "s1", Period: march, Quantity: 4}, 3, 3, false},
		{"huge quantity does not wrap", Candidate{SpaceID: "s1", Period: march, Quantity: math.MaxInt}, 3, 3, false},
		{"huge quantity on an empty window", Candidate{SpaceID: "s1", Period: period(t, "2025-05-01", "2025-05-02"), Quantity: math.MaxInt}, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.booked, Booked(existing, tt.c))
			assert.Equal(t, tt.fits, Fits(existing, tt.c, tt.capacity))
		})
	}
}

func TestFitsIsConservative(t *testing.T) {
	// Two one-night stays on different nights each use the whole capacity.
	// A request spanning both nights sees them summed even though no single day has both.
	existing := []*Reservation{
		{ID: "x", SpaceID: "s1", Period: period(t, "2025-03-01", "2025-03-02"), Quantity: 1, Status: StatusPending},
		{ID: "y", SpaceID: "s1", Period: period(t, "2025-03-02", "2025-03-03"), Quantity: 1, Status: StatusPending},
	}
	c := Candidate{SpaceID: "s1", Period: period(t, "2025-03-01", "2025-03-03"), Quantity: 1}

	assert.Equal(t, 2, Booked(existing, c))
	assert.False(t, Fits(existing, c, 2))
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanBecome(tt.to))
		})
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, st)

	_, err = ParseStatus("approved")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
