package reservation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/logger"
	"github.com/nekogravitycat/space-reservation-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/space-reservation-backend/internal/pricing"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
)

// SpaceReader looks up catalog entries.
type SpaceReader interface {
	GetByID(ctx context.Context, id string) (*space.Space, error)
}

type CreateRequest struct {
	SpaceID   string
	StartDate string
	EndDate   string
	Quantity  int
	Status    *string
	UserID    string // Books on behalf of another user; admins only
}

type UpdateRequest struct {
	SpaceID   *string
	StartDate *string
	EndDate   *string
	Quantity  *int
	Status    *string
}

type Service interface {
	Create(ctx context.Context, actor Actor, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, actor Actor, id string) (*Reservation, error)
	List(ctx context.Context, actor Actor, filter Filter) ([]*Reservation, int, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Reservation, error)
	Cancel(ctx context.Context, actor Actor, id string) (*Reservation, error)
	Availability(ctx context.Context, spaceID, startDate, endDate string) (Availability, error)
}

type service struct {
	repo    Repository
	spaces  SpaceReader
	clock   calendar.Clock
	metrics *metrics.Metrics
}

func NewService(repo Repository, spaces SpaceReader, clock calendar.Clock, m *metrics.Metrics) Service {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &service{
		repo:    repo,
		spaces:  spaces,
		clock:   clock,
		metrics: m,
	}
}

func (s *service) lookupSpace(ctx context.Context, id string) (*space.Space, error) {
	sp, err := s.spaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, space.ErrNotFound) {
			return nil, ErrSpaceNotFound
		}
		return nil, err
	}
	return sp, nil
}

// admit returns the check run under the space lock. It re-reads capacity and
// price there, so a catalog change between validation and commit is honoured.
func admit(r *Reservation, requireActive bool) CheckFunc {
	return func(sp *space.Space, overlapping []*Reservation) error {
		if requireActive && !sp.Active {
			return ErrSpaceInactive
		}
		c := Candidate{SpaceID: sp.ID, Period: r.Period, Quantity: r.Quantity, ExcludeID: r.ID}
		if !Fits(overlapping, c, sp.Capacity) {
			return ErrCapacityExceeded
		}
		r.SpaceName = sp.Name
		r.TotalPrice = pricing.Price(sp.DailyPrice, r.Period.Days(), r.Quantity)
		return nil
	}
}

func (s *service) observe(op string, started time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case apperror.IsClientError(err):
		outcome = metrics.OutcomeRejected
		logger.Debug("reservation commit rejected", zap.String("operation", op), zap.Error(err))
	default:
		outcome = metrics.OutcomeError
		logger.Error("reservation commit failed", zap.String("operation", op), zap.Error(err))
	}
	s.metrics.ObserveCommit(op, outcome, time.Since(started))
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateRequest) (*Reservation, error) {
	if actor.UserID == "" {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(req.SpaceID) == "" {
		return nil, ErrSpaceRequired
	}
	period, err := calendar.ParseInterval(req.StartDate, req.EndDate, calendar.Today(s.clock))
	if err != nil {
		return nil, err
	}
	if req.Quantity < 1 || req.Quantity > MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	status := StatusPending
	owner := actor.UserID
	if actor.Admin {
		if req.Status != nil {
			st, err := ParseStatus(*req.Status)
			if err != nil {
				return nil, err
			}
			if st == StatusCancelled {
				return nil, ErrInvalidStatus
			}
			status = st
		}
		if req.UserID != "" {
			owner = req.UserID
		}
	}

	// Early rejection only; the commit re-reads the space under lock.
	sp, err := s.lookupSpace(ctx, req.SpaceID)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, ErrSpaceInactive
	}
	if req.Quantity > sp.Capacity {
		return nil, ErrCapacityExceeded
	}

	r := &Reservation{
		UserID:    owner,
		SpaceID:   sp.ID,
		SpaceName: sp.Name,
		Period:    period,
		Quantity:  req.Quantity,
		Status:    status,
	}

	started := time.Now()
	err = s.repo.CommitCreate(ctx, r, admit(r, true))
	s.observe("create", started, err)
	if err != nil {
		return nil, err
	}

	logger.Info("reservation created",
		zap.String("reservation_id", r.ID),
		zap.String("space_id", r.SpaceID),
		zap.String("user_id", r.UserID),
		zap.Stringer("period", r.Period),
		zap.Int("quantity", r.Quantity),
	)
	return r, nil
}

func (s *service) GetByID(ctx context.Context, actor Actor, id string) (*Reservation, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canActOn(r) {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

// List scopes non-admins to their own reservations whatever the filter asks for.
func (s *service) List(ctx context.Context, actor Actor, filter Filter) ([]*Reservation, int, error) {
	if !actor.Admin {
		if actor.UserID == "" {
			return nil, 0, ErrPermissionDenied
		}
		filter.UserID = actor.UserID
	}
	return s.repo.List(ctx, filter)
}

// Update merges the patch onto the stored reservation. Capacity and price are
// re-evaluated only when the space, dates or quantity change.
func (s *service) Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canActOn(current) {
		return nil, ErrPermissionDenied
	}

	next := current.clone()
	reshaped := false
	spaceChanged := false

	if req.SpaceID != nil {
		spaceID := strings.TrimSpace(*req.SpaceID)
		if spaceID == "" {
			return nil, ErrSpaceRequired
		}
		if spaceID != current.SpaceID {
			next.SpaceID = spaceID
			reshaped, spaceChanged = true, true
		}
	}

	if req.StartDate != nil || req.EndDate != nil {
		period, err := s.mergePeriod(current.Period, req.StartDate, req.EndDate)
		if err != nil {
			return nil, err
		}
		if !period.Equal(current.Period) {
			next.Period = period
			reshaped = true
		}
	}

	if req.Quantity != nil {
		if *req.Quantity < 1 || *req.Quantity > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
		if *req.Quantity != current.Quantity {
			next.Quantity = *req.Quantity
			reshaped = true
		}
	}

	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanBecome(st) {
			return nil, ErrInvalidTransition
		}
		if st == StatusConfirmed && current.Status != StatusConfirmed && !actor.Admin {
			return nil, ErrPermissionDenied
		}
		next.Status = st
	}

	if current.Status == StatusCancelled && reshaped {
		return nil, ErrInvalidTransition
	}

	var check CheckFunc
	if reshaped && next.Status.Holds() {
		// Early rejection only; the commit re-reads the space under lock.
		sp, err := s.lookupSpace(ctx, next.SpaceID)
		if err != nil {
			return nil, err
		}
		if spaceChanged && !sp.Active {
			return nil, ErrSpaceInactive
		}
		if next.Quantity > sp.Capacity {
			return nil, ErrCapacityExceeded
		}
		check = admit(next, spaceChanged)
	}

	started := time.Now()
	err = s.repo.CommitUpdate(ctx, next, current.Version, check)
	s.observe("update", started, err)
	if err != nil {
		return nil, err
	}

	logger.Info("reservation updated",
		zap.String("reservation_id", next.ID),
		zap.String("status", string(next.Status)),
		zap.Bool("reshaped", reshaped),
	)
	return next, nil
}

// mergePeriod applies new bounds onto the stored period. A changed start day
// must not be in the past; an unchanged one may already be.
func (s *service) mergePeriod(current calendar.Interval, rawStart, rawEnd *string) (calendar.Interval, error) {
	start, end := current.Start(), current.End()
	var err error
	if rawStart != nil {
		if start, err = calendar.ParseDate(*rawStart); err != nil {
			return calendar.Interval{}, err
		}
	}
	if rawEnd != nil {
		if end, err = calendar.ParseDate(*rawEnd); err != nil {
			return calendar.Interval{}, err
		}
	}
	if !start.Equal(current.Start()) {
		if err := calendar.CheckNotPast(start, calendar.Today(s.clock)); err != nil {
			return calendar.Interval{}, err
		}
	}
	return calendar.NewInterval(start, end)
}

// Cancel is idempotent: cancelling a cancelled reservation returns it unchanged.
func (s *service) Cancel(ctx context.Context, actor Actor, id string) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canActOn(current) {
		return nil, ErrPermissionDenied
	}
	if current.Status == StatusCancelled {
		return current, nil
	}

	started := time.Now()
	r, err := s.repo.Cancel(ctx, id)
	s.observe("cancel", started, err)
	if err != nil {
		return nil, err
	}

	logger.Info("reservation cancelled", zap.String("reservation_id", id))
	return r, nil
}

func (s *service) Availability(ctx context.Context, spaceID, startDate, endDate string) (Availability, error) {
	if strings.TrimSpace(spaceID) == "" {
		return Availability{}, ErrSpaceRequired
	}
	period, err := calendar.ParseInterval(startDate, endDate, calendar.Today(s.clock))
	if err != nil {
		return Availability{}, err
	}
	sp, err := s.lookupSpace(ctx, spaceID)
	if err != nil {
		return Availability{}, err
	}

	existing, err := s.repo.ListOverlapping(ctx, sp.ID, period, "")
	if err != nil {
		return Availability{}, err
	}
	capacity := sp.Capacity
	if !sp.Active {
		capacity = 0
	}
	return newAvailability(sp.ID, period, capacity, existing), nil
}
