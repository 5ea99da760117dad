package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/request"
	"github.com/nekogravitycat/space-reservation-backend/internal/pricing"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
)

type SpaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	DailyPrice  string    `json:"daily_price"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewResponse(s *space.Space) SpaceResponse {
	return SpaceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Capacity:    s.Capacity,
		DailyPrice:  s.DailyPrice.StringFixed(pricing.Places),
		Active:      s.Active,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SpaceTag is the compact form embedded in other resources.
type SpaceTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ListSpacesRequest struct {
	request.ListParams
	Keyword string `form:"q"`
	Active  *bool  `form:"active"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=name capacity daily_price created_at"`
}

// DailyPrice accepts either a JSON number or a quoted decimal string.
type CreateRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Capacity    int             `json:"capacity" binding:"min=0"`
	DailyPrice  decimal.Decimal `json:"daily_price"`
	Active      *bool           `json:"active"`
}

type UpdateRequest struct {
	Name        *string          `json:"name" binding:"omitempty"`
	Description *string          `json:"description"`
	Capacity    *int             `json:"capacity" binding:"omitempty,min=0"`
	DailyPrice  *decimal.Decimal `json:"daily_price"`
	Active      *bool            `json:"active"`
}
