package space

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "space not found")
	ErrEmptyName       = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, "capacity must be at least 1 for an active space")
	ErrInvalidPrice    = apperror.New(http.StatusBadRequest, "daily price cannot be negative")
	ErrInUse           = apperror.New(http.StatusConflict, "space still has reservations and cannot be deleted")
)

// Space is a bookable offering with a fixed number of units per day.
type Space struct {
	ID          string
	Name        string
	Description string
	Capacity    int
	DailyPrice  decimal.Decimal
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the catalog invariants shared by create and update.
func (s *Space) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if s.Capacity < 0 || (s.Active && s.Capacity < 1) {
		return ErrInvalidCapacity
	}
	if s.DailyPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Filter defines parameters for listing spaces.
type Filter struct {
	Keyword   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
