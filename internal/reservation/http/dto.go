package http

import (
	"time"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/pricing"
	"github.com/nekogravitycat/space-reservation-backend/internal/reservation"
	spaceHttp "github.com/nekogravitycat/space-reservation-backend/internal/space/http"
	userHttp "github.com/nekogravitycat/space-reservation-backend/internal/user/http"
)

// ListReservationsRequest defines query parameters for listing reservations.
// user_id is honoured for admins only.
type ListReservationsRequest struct {
	request.ListParams
	SpaceID string `form:"space_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	UserID  string `form:"user_id" binding:"omitempty,uuid"`
	From    string `form:"from"`
	To      string `form:"to"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=start_date end_date created_at status"`
}

type ReservationResponse struct {
	ID         string             `json:"id"`
	User       userHttp.UserTag   `json:"user"`
	Space      spaceHttp.SpaceTag `json:"space"`
	StartDate  string             `json:"start_date"`
	EndDate    string             `json:"end_date"`
	Days       int                `json:"days"`
	Quantity   int                `json:"quantity"`
	Status     string             `json:"status"`
	TotalPrice string             `json:"total_price"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		User:       userHttp.UserTag{ID: r.UserID, Name: r.UserName},
		Space:      spaceHttp.SpaceTag{ID: r.SpaceID, Name: r.SpaceName},
		StartDate:  r.Period.Start().Format(calendar.Layout),
		EndDate:    r.Period.End().Format(calendar.Layout),
		Days:       r.Period.Days(),
		Quantity:   r.Quantity,
		Status:     string(r.Status),
		TotalPrice: r.TotalPrice.StringFixed(pricing.Places),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Dates are YYYY-MM-DD; end_date is the first day no longer held.
type CreateReservationRequest struct {
	SpaceID   string  `json:"space_id" binding:"required,uuid"`
	StartDate string  `json:"start_date" binding:"required"`
	EndDate   string  `json:"end_date" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1,max=2147483647"`
	Status    *string `json:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	UserID    string  `json:"user_id" binding:"omitempty,uuid"`
}

type UpdateReservationRequest struct {
	SpaceID   *string `json:"space_id" binding:"omitempty,uuid"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Quantity  *int    `json:"quantity" binding:"omitempty,min=1,max=2147483647"`
	Status    *string `json:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
}

type AvailabilityRequest struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

type AvailabilityResponse struct {
	SpaceID   string `json:"space_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Capacity  int    `json:"capacity"`
	Booked    int    `json:"booked"`
	Remaining int    `json:"remaining"`
}

func NewAvailabilityResponse(a reservation.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		SpaceID:   a.SpaceID,
		StartDate: a.Period.Start().Format(calendar.Layout),
		EndDate:   a.Period.End().Format(calendar.Layout),
		Capacity:  a.Capacity,
		Booked:    a.Booked,
		Remaining: a.Remaining,
	}
}
