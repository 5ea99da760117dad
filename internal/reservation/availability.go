package reservation

import "github.com/nekogravitycat/space-reservation-backend/internal/calendar"

// Candidate describes the load a new or changed reservation would add.
type Candidate struct {
	SpaceID   string
	Period    calendar.Interval
	Quantity  int
	ExcludeID string // the reservation being updated, so it does not count against itself
}

// Booked sums the units already held on the candidate's space over any day of its period.
// Cancelled reservations and the excluded id do not count.
func Booked(existing []*Reservation, c Candidate) int {
	total := 0
	for _, r := range existing {
		if r.SpaceID != c.SpaceID || !r.Status.Holds() {
			continue
		}
		if c.ExcludeID != "" && r.ID == c.ExcludeID {
			continue
		}
		if r.Period.Overlaps(c.Period) {
			total += r.Quantity
		}
	}
	return total
}

// Fits reports whether the candidate can be admitted without exceeding capacity.
// The sum is over the whole period rather than per day, so it may refuse a
// request that would fit day by day.
func Fits(existing []*Reservation, c Candidate, capacity int) bool {
	if c.Quantity > capacity {
		return false
	}
	return Booked(existing, c) <= capacity-c.Quantity
}

// Availability is a read-only preview of a space's load over a period.
type Availability struct {
	SpaceID   string
	Period    calendar.Interval
	Capacity  int
	Booked    int
	Remaining int
}

func newAvailability(spaceID string, period calendar.Interval, capacity int, existing []*Reservation) Availability {
	booked := Booked(existing, Candidate{SpaceID: spaceID, Period: period})
	return Availability{
		SpaceID:   spaceID,
		Period:    period,
		Capacity:  capacity,
		Booked:    booked,
		Remaining: max(capacity-booked, 0),
	}
}
