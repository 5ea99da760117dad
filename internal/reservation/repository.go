package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
	"github.com/nekogravitycat/space-reservation-backend/internal/space"
)

// CheckFunc runs while the store holds the commit lock of the reservation's space.
// sp is read inside the lock and overlapping holds the other live reservations
// of that space whose periods overlap the one being written. Returning an error
// aborts the commit. It may fill in derived fields such as TotalPrice.
type CheckFunc func(sp *space.Space, overlapping []*Reservation) error

type Repository interface {
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// ListOverlapping reads live reservations of a space overlapping period, without locking.
	ListOverlapping(ctx context.Context, spaceID string, period calendar.Interval, excludeID string) ([]*Reservation, error)

	// CommitCreate serializes against other commits on r.SpaceID, runs check and inserts r.
	CommitCreate(ctx context.Context, r *Reservation, check CheckFunc) error

	// CommitUpdate does the same for an existing row, which must still be at version.
	// A row written since it was read yields ErrConcurrentCommit. On success r.Version
	// holds the new version.
	CommitUpdate(ctx context.Context, r *Reservation, version int, check CheckFunc) error

	// Cancel flips a reservation to cancelled and returns the stored row.
	Cancel(ctx context.Context, id string) (*Reservation, error)
}

const (
	userFK  = "reservations_user_id_fkey"
	spaceFK = "reservations_space_id_fkey"
)

var sortColumns = map[string]string{
	"start_date": "r.start_date",
	"end_date":   "r.end_date",
	"created_at": "r.created_at",
	"status":     "r.status",
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func selectReservations() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(
		"r.id", "r.user_id", "COALESCE(u.display_name, u.email)", "r.space_id", "s.name",
		"r.start_date", "r.end_date", "r.quantity", "r.status", "r.total_price::text",
		"r.created_at", "r.updated_at", "r.version",
	).
		From("public.reservations r").
		Join("public.users u ON r.user_id = u.id").
		Join("public.spaces s ON r.space_id = s.id")
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	var (
		r          Reservation
		start, end time.Time
		status     string
		price      string
	)
	dest := append([]any{
		&r.ID, &r.UserID, &r.UserName, &r.SpaceID, &r.SpaceName,
		&start, &end, &r.Quantity, &status, &price,
		&r.CreatedAt, &r.UpdatedAt, &r.Version,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	period, err := calendar.NewInterval(start, end)
	if err != nil {
		return nil, fmt.Errorf("reservation %s has invalid period: %w", r.ID, err)
	}
	r.Period = period
	r.Status = Status(status)
	if r.TotalPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("reservation %s has invalid total %q: %w", r.ID, price, err)
	}
	return &r, nil
}

func (repo *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return getByID(ctx, repo.pool, id)
}

func getByID(ctx context.Context, q querier, id string) (*Reservation, error) {
	query, args, err := selectReservations().Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	r, err := scanReservation(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || hasCode(err, pgerrcode.InvalidTextRepresentation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return r, nil
}

func (repo *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := selectReservations().Column("count(*) OVER() as total_count")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"r.user_id": filter.UserID})
	}
	if filter.SpaceID != "" {
		query = query.Where(squirrel.Eq{"r.space_id": filter.SpaceID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"r.status": filter.Status})
	}
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"r.end_date": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"r.start_date": *filter.To})
	}

	orderBy := "r.start_date"
	if col, ok := sortColumns[filter.SortBy]; ok {
		orderBy = col
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "r.id")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := repo.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	var total int
	for rows.Next() {
		r, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}

	return result, total, nil
}

func (repo *pgxRepository) ListOverlapping(ctx context.Context, spaceID string, period calendar.Interval, excludeID string) ([]*Reservation, error) {
	return listOverlapping(ctx, repo.pool, spaceID, period, excludeID)
}

func listOverlapping(ctx context.Context, q querier, spaceID string, period calendar.Interval, excludeID string) ([]*Reservation, error) {
	query := selectReservations().
		Where(squirrel.Eq{"r.space_id": spaceID}).
		Where(squirrel.NotEq{"r.status": string(StatusCancelled)}).
		Where(squirrel.Lt{"r.start_date": period.End()}).
		Where(squirrel.Gt{"r.end_date": period.Start()})
	if excludeID != "" {
		query = query.Where(squirrel.NotEq{"r.id": excludeID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlap query failed: %w", err)
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list overlapping reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (repo *pgxRepository) CommitCreate(ctx context.Context, r *Reservation, check CheckFunc) error {
	return repo.commit(ctx, r, "", check, func(tx pgx.Tx) error {
		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		query, args, err := psql.Insert("public.reservations").
			Columns("user_id", "space_id", "start_date", "end_date", "quantity", "status", "total_price").
			Values(r.UserID, r.SpaceID, r.Period.Start(), r.Period.End(), r.Quantity, string(r.Status), r.TotalPrice.String()).
			Suffix("RETURNING id, created_at, updated_at, version").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create reservation query failed: %w", err)
		}
		return tx.QueryRow(ctx, query, args...).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt, &r.Version)
	})
}

func (repo *pgxRepository) CommitUpdate(ctx context.Context, r *Reservation, version int, check CheckFunc) error {
	return repo.commit(ctx, r, r.ID, check, func(tx pgx.Tx) error {
		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		query, args, err := psql.Update("public.reservations").
			Set("space_id", r.SpaceID).
			Set("start_date", r.Period.Start()).
			Set("end_date", r.Period.End()).
			Set("quantity", r.Quantity).
			Set("status", string(r.Status)).
			Set("total_price", r.TotalPrice.String()).
			Set("updated_at", squirrel.Expr("now()")).
			Set("version", squirrel.Expr("version + 1")).
			Where(squirrel.Eq{"id": r.ID, "version": version}).
			Suffix("RETURNING updated_at, version").
			ToSql()
		if err != nil {
			return fmt.Errorf("build update reservation query failed: %w", err)
		}

		err = tx.QueryRow(ctx, query, args...).Scan(&r.UpdatedAt, &r.Version)
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the row is gone or someone wrote it since it was read.
			if _, getErr := getByID(ctx, tx, r.ID); errors.Is(getErr, ErrNotFound) {
				return ErrNotFound
			}
			return ErrConcurrentCommit
		}
		return err
	})
}

// commit runs check and write in one transaction holding the space's advisory lock.
// The lock is released when the transaction ends.
func (repo *pgxRepository) commit(ctx context.Context, r *Reservation, excludeID string, check CheckFunc, write func(tx pgx.Tx) error) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reservation commit failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", r.SpaceID); err != nil {
		return mapCommitError(fmt.Errorf("acquire space lock failed: %w", err))
	}

	sp, err := lockedSpace(ctx, tx, r.SpaceID)
	if err != nil {
		return err
	}
	overlapping, err := listOverlapping(ctx, tx, r.SpaceID, r.Period, excludeID)
	if err != nil {
		return mapCommitError(err)
	}
	if check != nil {
		if err := check(sp, overlapping); err != nil {
			return err
		}
	}

	if err := write(tx); err != nil {
		return mapCommitError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapCommitError(fmt.Errorf("commit reservation failed: %w", err))
	}
	return nil
}

func lockedSpace(ctx context.Context, tx pgx.Tx, id string) (*space.Space, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(space.Columns("")...).
		From("public.spaces").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build space query failed: %w", err)
	}

	sp, err := space.Scan(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || hasCode(err, pgerrcode.InvalidTextRepresentation) {
			return nil, ErrSpaceNotFound
		}
		return nil, mapCommitError(fmt.Errorf("read space failed: %w", err))
	}
	return sp, nil
}

func (repo *pgxRepository) Cancel(ctx context.Context, id string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reservations").
		Set("status", string(StatusCancelled)).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.NotEq{"status": string(StatusCancelled)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cancel reservation query failed: %w", err)
	}

	if _, err := repo.pool.Exec(ctx, query, args...); err != nil {
		if hasCode(err, pgerrcode.InvalidTextRepresentation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cancel reservation failed: %w", err)
	}
	return getByID(ctx, repo.pool, id)
}

// mapCommitError turns lock and constraint failures into domain errors.
func mapCommitError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return ErrConcurrentCommit
	case pgerrcode.ForeignKeyViolation:
		switch pgErr.ConstraintName {
		case userFK:
			return ErrUserNotFound
		case spaceFK:
			return ErrSpaceNotFound
		}
	}
	return err
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
