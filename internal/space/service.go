package space

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name        string
	Description string
	Capacity    int
	DailyPrice  decimal.Decimal
	Active      *bool
}

type UpdateRequest struct {
	Name        *string
	Description *string
	Capacity    *int
	DailyPrice  *decimal.Decimal
	Active      *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Space, error)
	GetByID(ctx context.Context, id string) (*Space, error)
	List(ctx context.Context, filter Filter) ([]*Space, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Space, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Space, error) {
	sp := &Space{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Capacity:    req.Capacity,
		DailyPrice:  req.DailyPrice,
		Active:      true,
	}
	if req.Active != nil {
		sp.Active = *req.Active
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Space, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Space, int, error) {
	return s.repo.List(ctx, filter)
}

// Update applies a partial change. Capacity and price changes only affect
// reservations committed afterwards; existing rows keep their stored totals.
func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Space, error) {
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		sp.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		sp.Description = strings.TrimSpace(*req.Description)
	}
	if req.Capacity != nil {
		sp.Capacity = *req.Capacity
	}
	if req.DailyPrice != nil {
		sp.DailyPrice = *req.DailyPrice
	}
	if req.Active != nil {
		sp.Active = *req.Active
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
