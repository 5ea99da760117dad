package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
)

// MemoryRepository is a process-local Repository.
// Commits on the same space are serialized by a per-space mutex; commits on
// different spaces run in parallel and only share the short row-map lock.
type MemoryRepository struct {
	spaces SpaceReader
	now    func() time.Time

	mu   sync.RWMutex
	rows map[string]*Reservation

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewMemoryRepository(spaces SpaceReader) *MemoryRepository {
	return &MemoryRepository{
		spaces: spaces,
		now:    time.Now,
		rows:   make(map[string]*Reservation),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *MemoryRepository) spaceLock(spaceID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[spaceID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[spaceID] = l
	}
	return l
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

func (m *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	m.mu.RLock()
	var matched []*Reservation
	for _, r := range m.rows {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.SpaceID != "" && r.SpaceID != filter.SpaceID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		if filter.From != nil && !r.Period.End().After(calendar.Day(*filter.From)) {
			continue
		}
		if filter.To != nil && !r.Period.Start().Before(calendar.Day(*filter.To)) {
			continue
		}
		matched = append(matched, r.clone())
	}
	m.mu.RUnlock()

	sortReservations(matched, filter.SortBy, filter.SortOrder == "ASC")

	total := len(matched)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	start := min((filter.Page-1)*filter.PageSize, total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func sortReservations(rs []*Reservation, sortBy string, asc bool) {
	key := func(r *Reservation) time.Time {
		switch sortBy {
		case "end_date":
			return r.Period.End()
		case "created_at":
			return r.CreatedAt
		default:
			return r.Period.Start()
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if sortBy == "status" && a.Status != b.Status {
			return (a.Status < b.Status) == asc
		}
		ka, kb := key(a), key(b)
		if !ka.Equal(kb) {
			return ka.Before(kb) == asc
		}
		return a.ID < b.ID
	})
}

func (m *MemoryRepository) ListOverlapping(ctx context.Context, spaceID string, period calendar.Interval, excludeID string) ([]*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlapping(spaceID, period, excludeID), nil
}

// overlapping must be called with m.mu held.
func (m *MemoryRepository) overlapping(spaceID string, period calendar.Interval, excludeID string) []*Reservation {
	var out []*Reservation
	for _, r := range m.rows {
		if r.SpaceID != spaceID || !r.Status.Holds() || r.ID == excludeID {
			continue
		}
		if r.Period.Overlaps(period) {
			out = append(out, r.clone())
		}
	}
	return out
}

// admit reads the space and its overlapping rows and runs check.
// The caller must hold the space lock.
func (m *MemoryRepository) admit(ctx context.Context, r *Reservation, excludeID string, check CheckFunc) error {
	sp, err := m.spaces.GetByID(ctx, r.SpaceID)
	if err != nil {
		if errors.Is(err, space.ErrNotFound) {
			return ErrSpaceNotFound
		}
		return err
	}

	m.mu.RLock()
	overlapping := m.overlapping(r.SpaceID, r.Period, excludeID)
	m.mu.RUnlock()

	if check == nil {
		return nil
	}
	return check(sp, overlapping)
}

func (m *MemoryRepository) CommitCreate(ctx context.Context, r *Reservation, check CheckFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.spaceLock(r.SpaceID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.admit(ctx, r, "", check); err != nil {
		return err
	}

	now := m.now().UTC()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	m.mu.Lock()
	m.rows[r.ID] = r.clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) CommitUpdate(ctx context.Context, r *Reservation, version int, check CheckFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := m.spaceLock(r.SpaceID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.admit(ctx, r, r.ID, check); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[r.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != version {
		return ErrConcurrentCommit
	}
	r.CreatedAt = stored.CreatedAt
	r.UpdatedAt = m.now().UTC()
	r.Version = version + 1
	m.rows[r.ID] = r.clone()
	return nil
}

func (m *MemoryRepository) Cancel(ctx context.Context, id string) (*Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusCancelled {
		r.Status = StatusCancelled
		r.UpdatedAt = m.now().UTC()
		r.Version++
	}
	return r.clone(), nil
}
