package station

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, st *Station) error
	GetByID(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context, filter Filter) ([]*Station, int, error)
	Update(ctx context.Context, st *Station) error
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, st *Station) error {
	const query = `
		INSERT INTO public.stations (name, location, connector_type, power_kw, is_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, st.Name, st.Location, st.ConnectorType, st.PowerKW, st.IsAvailable).
		Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create station failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Station, error) {
	const query = `
		SELECT id, name, location, connector_type, power_kw, is_available, created_at, updated_at
		FROM public.stations
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var st Station
	if err := row.Scan(
		&st.ID, &st.Name, &st.Location, &st.ConnectorType, &st.PowerKW,
		&st.IsAvailable, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get station failed: %w", err)
	}
	return &st, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Station, int, error) {
	var args []interface{}
	queryBase := `
		SELECT id, name, location, connector_type, power_kw, is_available, created_at, updated_at,
			count(*) OVER() as total_count
		FROM public.stations
		WHERE 1=1
	`
	paramIndex := 1

	if filter.ConnectorType != "" {
		queryBase += fmt.Sprintf(" AND connector_type = $%d", paramIndex)
		args = append(args, filter.ConnectorType)
		paramIndex++
	}
	if filter.IsAvailable != nil {
		queryBase += fmt.Sprintf(" AND is_available = $%d", paramIndex)
		args = append(args, *filter.IsAvailable)
		paramIndex++
	}

	// Sorting; only whitelisted columns are accepted.
	orderBy := "created_at"
	switch filter.SortBy {
	case "name", "power_kw", "created_at":
		orderBy = filter.SortBy
	}
	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	queryBase += " ORDER BY " + orderBy + " " + orderDir

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	queryBase += fmt.Sprintf(" LIMIT $%d OFFSET $%d", paramIndex, paramIndex+1)
	args = append(args, filter.PageSize, offset)

	rows, err := r.pool.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stations failed: %w", err)
	}
	defer rows.Close()

	var result []*Station
	var total int

	for rows.Next() {
		var st Station
		if err := rows.Scan(
			&st.ID, &st.Name, &st.Location, &st.ConnectorType, &st.PowerKW,
			&st.IsAvailable, &st.CreatedAt, &st.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan station failed: %w", err)
		}
		result = append(result, &st)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, st *Station) error {
	const query = `
		UPDATE public.stations
		SET name = $1, location = $2, connector_type = $3, power_kw = $4,
			is_available = $5, updated_at = now()
		WHERE id = $6
	`
	ct, err := r.pool.Exec(ctx, query,
		st.Name, st.Location, st.ConnectorType, st.PowerKW, st.IsAvailable, st.ID)
	if err != nil {
		return fmt.Errorf("update station failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.stations WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete station failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
