package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Create persists a new booking. The bookings table carries an exclusion
	// constraint over (station_id, [start_time, end_time)) for active rows,
	// so of several racing inserts for an overlapping slot exactly one
	// succeeds; the rest fail with ErrTimeConflict.
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, b *Booking) error

	// FindConflicts returns active (pending/approved) bookings at the station
	// whose interval overlaps [start, end). excludeID is used during updates
	// to ignore the booking itself.
	FindConflicts(ctx context.Context, stationID string, start, end time.Time, excludeID string) ([]*Booking, error)

	// NumberExists reports whether a booking already uses the given number.
	NumberExists(ctx context.Context, number string) (bool, error)
	// NextDaySequence atomically increments and returns the per-day counter
	// used for booking numbers. day is formatted YYYYMMDD.
	NextDaySequence(ctx context.Context, day string) (int, error)

	SetQR(ctx context.Context, id, token string, generatedAt time.Time) error
	ClearQR(ctx context.Context, id string) error

	Stats(ctx context.Context, filter StatsFilter) (*Stats, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const bookingColumns = `id, booking_number, user_id, station_id, booking_date, start_time, end_time,
	vehicle_number, vehicle_type, estimated_minutes, notes, status,
	approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
	cancelled_at, cancelled_by, cancellation_reason,
	completed_at, actual_start_time, actual_end_time, total_cost, energy_consumed,
	qr_token, qr_generated_at, created_at, updated_at`

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.BookingNumber, &b.UserID, &b.StationID, &b.BookingDate, &b.StartTime, &b.EndTime,
		&b.VehicleNumber, &b.VehicleType, &b.EstimatedMinutes, &b.Notes, &b.Status,
		&b.ApprovedAt, &b.ApprovedBy, &b.RejectedAt, &b.RejectedBy, &b.RejectionReason,
		&b.CancelledAt, &b.CancelledBy, &b.CancellationReason,
		&b.CompletedAt, &b.ActualStartTime, &b.ActualEndTime, &b.TotalCost, &b.EnergyConsumed,
		&b.QRToken, &b.QRGeneratedAt, &b.CreatedAt, &b.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

// mapConstraintError translates Postgres constraint violations into
// domain errors. The exclusion constraint on active booking intervals is
// what closes the check-then-insert race.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return ErrTimeConflict
		case pgerrcode.UniqueViolation:
			if strings.Contains(pgErr.ConstraintName, "booking_number") {
				return fmt.Errorf("duplicate booking number: %w", err)
			}
		}
	}
	return err
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"booking_number", "user_id", "station_id", "booking_date", "start_time", "end_time",
			"vehicle_number", "vehicle_type", "estimated_minutes", "notes", "status",
		).
		Values(
			b.BookingNumber, b.UserID, b.StationID, b.BookingDate, b.StartTime, b.EndTime,
			b.VehicleNumber, b.VehicleType, b.EstimatedMinutes, b.Notes, b.Status,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapConstraintError(err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(bookingColumns + ", count(*) OVER() as total_count").
		From("public.bookings")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.StationID != "" {
		query = query.Where(squirrel.Eq{"station_id": filter.StationID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.DateFrom != nil {
		query = query.Where(squirrel.GtOrEq{"booking_date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		query = query.Where(squirrel.LtOrEq{"booking_date": *filter.DateTo})
	}
	if filter.CreatedFrom != nil {
		query = query.Where(squirrel.GtOrEq{"created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		query = query.Where(squirrel.LtOrEq{"created_at": *filter.CreatedTo})
	}
	if filter.VehicleNumber != "" {
		query = query.Where(squirrel.ILike{"vehicle_number": "%" + filter.VehicleNumber + "%"})
	}

	// Sorting
	orderBy := "created_at"
	switch filter.SortBy {
	case "booking_date", "status", "created_at":
		orderBy = filter.SortBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy + " " + orderDir)

	// Pagination
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
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}

	return bookings, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	query, args, err := psql.Update("public.bookings").
		Set("booking_date", b.BookingDate).
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("vehicle_number", b.VehicleNumber).
		Set("vehicle_type", b.VehicleType).
		Set("estimated_minutes", b.EstimatedMinutes).
		Set("notes", b.Notes).
		Set("status", b.Status).
		Set("approved_at", b.ApprovedAt).
		Set("approved_by", b.ApprovedBy).
		Set("rejected_at", b.RejectedAt).
		Set("rejected_by", b.RejectedBy).
		Set("rejection_reason", b.RejectionReason).
		Set("cancelled_at", b.CancelledAt).
		Set("cancelled_by", b.CancelledBy).
		Set("cancellation_reason", b.CancellationReason).
		Set("completed_at", b.CompletedAt).
		Set("actual_start_time", b.ActualStartTime).
		Set("actual_end_time", b.ActualEndTime).
		Set("total_cost", b.TotalCost).
		Set("energy_consumed", b.EnergyConsumed).
		Set("qr_token", b.QRToken).
		Set("qr_generated_at", b.QRGeneratedAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapConstraintError(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) FindConflicts(ctx context.Context, stationID string, start, end time.Time, excludeID string) ([]*Booking, error) {
	// Half-open overlap: existing.start < end AND existing.end > start.
	// Back-to-back bookings do not conflict.
	query := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"station_id": stationID}).
		Where(squirrel.Eq{"status": ActiveStatuses}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start}).
		OrderBy("start_time ASC")

	if excludeID != "" {
		query = query.Where(squirrel.NotEq{"id": excludeID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find conflicts query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find conflicts failed: %w", err)
	}
	defer rows.Close()

	var conflicts []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict failed: %w", err)
		}
		conflicts = append(conflicts, b)
	}
	return conflicts, nil
}

func (r *pgxRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM public.bookings WHERE booking_number = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("check booking number failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) NextDaySequence(ctx context.Context, day string) (int, error) {
	// Single-row atomic upsert: no count-then-guess race between
	// concurrent same-day creations.
	const query = `
		INSERT INTO public.booking_day_counters (day, seq)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET seq = public.booking_day_counters.seq + 1
		RETURNING seq
	`

	var seq int
	if err := r.pool.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next day sequence failed: %w", err)
	}
	return seq, nil
}

func (r *pgxRepository) SetQR(ctx context.Context, id, token string, generatedAt time.Time) error {
	const query = `
		UPDATE public.bookings
		SET qr_token = $1, qr_generated_at = $2, updated_at = now()
		WHERE id = $3
	`
	ct, err := r.pool.Exec(ctx, query, token, generatedAt, id)
	if err != nil {
		return fmt.Errorf("set qr token failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) ClearQR(ctx context.Context, id string) error {
	const query = `
		UPDATE public.bookings
		SET qr_token = '', qr_generated_at = NULL, updated_at = now()
		WHERE id = $1
	`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("clear qr token failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Stats(ctx context.Context, filter StatsFilter) (*Stats, error) {
	applyRange := func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.CreatedFrom != nil {
			q = q.Where(squirrel.GtOrEq{"created_at": *filter.CreatedFrom})
		}
		if filter.CreatedTo != nil {
			q = q.Where(squirrel.LtOrEq{"created_at": *filter.CreatedTo})
		}
		return q
	}

	stats := &Stats{ByStatus: make(map[Status]int)}

	// Count per status
	byStatusQ := applyRange(psql.Select("status", "count(*)").
		From("public.bookings").
		GroupBy("status"))
	sql, args, err := byStatusQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("stats by status failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st Status
		var count int
		if err := rows.Scan(&st, &count); err != nil {
			return nil, fmt.Errorf("scan stats failed: %w", err)
		}
		stats.ByStatus[st] = count
		stats.Total += count
	}

	// Revenue over recorded costs and average scheduled duration
	aggQ := applyRange(psql.Select(
		"COALESCE(SUM(total_cost), 0)",
		"COALESCE(AVG(EXTRACT(EPOCH FROM (end_time - start_time)) / 60), 0)",
	).From("public.bookings"))
	sql, args, err = aggQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats aggregate query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, sql, args...).
		Scan(&stats.TotalRevenue, &stats.AvgDurationMinutes); err != nil {
		return nil, fmt.Errorf("stats aggregate failed: %w", err)
	}

	return stats, nil
}
