package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/db"
)

const serviceColumns = `id, name, description, duration, price, active, display_order, created_at, updated_at`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	if conn == nil {
		panic("catalog: database handle required")
	}
	return &PgRepository{db: conn}
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Duration,
		&s.Price,
		&s.Active,
		&s.DisplayOrder,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *PgRepository) ListActive(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM service
		WHERE active = true
		ORDER BY display_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}
	return result, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM service
		WHERE id = $1
	`, id)
	s, err := scanService(row)
	if err != nil && !errors.Is(err, ErrServiceNotFound) {
		return nil, fmt.Errorf("catalog: get service %d: %w", id, err)
	}
	return s, err
}

func (r *PgRepository) Create(ctx context.Context, in CreateInput) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO service (name, description, duration, price, display_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+serviceColumns,
		in.Name, in.Description, in.Duration, in.Price, in.DisplayOrder)

	s, err := scanService(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("catalog: insert service: %w", err)
	}
	return s, nil
}

func (r *PgRepository) Update(ctx context.Context, id int64, in UpdateInput) (*Service, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE service
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    duration = COALESCE($4, duration),
		    price = COALESCE($5, price),
		    active = COALESCE($6, active),
		    display_order = COALESCE($7, display_order),
		    updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns,
		id, in.Name, in.Description, in.Duration, in.Price, in.Active, in.DisplayOrder)

	s, err := scanService(row)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("catalog: update service %d: %w", id, err)
	}
	return s, nil
}
