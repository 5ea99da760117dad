package reservation

import (
	"math"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, "reservation not found")
	ErrSpaceNotFound     = apperror.New(http.StatusNotFound, "space not found")
	ErrUserNotFound      = apperror.New(http.StatusNotFound, "user not found")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, "permission denied")
	ErrSpaceRequired     = apperror.New(http.StatusBadRequest, "space_id is required")
	ErrInvalidQuantity   = apperror.New(http.StatusBadRequest, "quantity must be a positive integer")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, "invalid reservation status")
	ErrInvalidTransition = apperror.New(http.StatusBadRequest, "reservation status cannot change that way")
	ErrSpaceInactive     = apperror.New(http.StatusBadRequest, "space is not open for reservations")
	ErrCapacityExceeded  = apperror.New(http.StatusBadRequest, "not enough capacity left for the requested dates")
	ErrConcurrentCommit  = apperror.New(http.StatusBadRequest, "reservation changed concurrently, please retry")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Holds reports whether a reservation in this status occupies capacity.
func (s Status) Holds() bool {
	return s != StatusCancelled
}

// CanBecome reports whether a reservation may move from s to next.
// Cancelled is terminal and nothing returns to pending once confirmed.
func (s Status) CanBecome(next Status) bool {
	switch s {
	case StatusPending:
		return true
	case StatusConfirmed:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusCancelled:
		return next == StatusCancelled
	}
	return false
}

// MaxQuantity is the largest quantity the store column can hold.
const MaxQuantity = math.MaxInt32

// Reservation holds Quantity units of a space for every day of Period.
type Reservation struct {
	ID         string
	UserID     string
	UserName   string
	SpaceID    string
	SpaceName  string
	Period     calendar.Interval
	Quantity   int
	Status     Status
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Version increments on every write; updates must present the version they read.
	Version int
}

func (r *Reservation) clone() *Reservation {
	c := *r
	return &c
}

type Filter struct {
	UserID    string
	SpaceID   string
	Status    string
	From      *time.Time // Only reservations still running on or after this day
	To        *time.Time // Only reservations starting before this day
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Actor is the caller an operation runs on behalf of.
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) canActOn(r *Reservation) bool {
	return a.Admin || (a.UserID != "" && a.UserID == r.UserID)
}
