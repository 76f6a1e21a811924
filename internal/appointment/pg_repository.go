package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/appointment-booking/internal/db"
)

// bookingLockClass namespaces the per-day advisory locks taken by WithBookingTx.
const bookingLockClass int32 = 0x41474e44

const appointmentColumns = `id, name, email, phone, notes, service_id, scheduled_at, status, created_at, updated_at`

const detailSelect = `
	SELECT a.id, a.name, a.email, a.phone, a.notes, a.service_id, a.scheduled_at, a.status,
	       a.created_at, a.updated_at,
	       s.id, s.name, s.description, s.duration, s.price
	FROM appointment a
	LEFT JOIN service s ON s.id = a.service_id`

const blockedColumns = `id, start_at, end_at, reason, is_recurring, created_at`

type PgRepository struct {
	db   db.DBTX
	pool db.Pool // nil when bound to a transaction
}

func NewPgRepository(pool db.Pool) *PgRepository {
	if pool == nil {
		panic("appointment: database pool required")
	}
	return &PgRepository{db: pool, pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Notes,
		&a.ServiceID,
		&a.ScheduledAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanDetail(row pgx.Row) (*AppointmentDetail, error) {
	var (
		d           AppointmentDetail
		svcID       *int64
		svcName     *string
		svcDesc     *string
		svcDuration *int
		svcPrice    *int
	)
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Phone,
		&d.Notes,
		&d.ServiceID,
		&d.ScheduledAt,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
		&svcID,
		&svcName,
		&svcDesc,
		&svcDuration,
		&svcPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if svcID != nil {
		d.Service = &ServiceSummary{ID: *svcID, Description: svcDesc, Price: svcPrice}
		if svcName != nil {
			d.Service.Name = *svcName
		}
		if svcDuration != nil {
			d.Service.Duration = *svcDuration
		}
	}
	return &d, nil
}

func scanBlocked(row pgx.Row) (*BlockedSlot, error) {
	var b BlockedSlot
	err := row.Scan(&b.ID, &b.StartAt, &b.EndAt, &b.Reason, &b.IsRecurring, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedSlotNotFound
		}
		return nil, err
	}
	return &b, nil
}

func collectDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointment
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id int64) (*AppointmentDetail, error) {
	row := r.db.QueryRow(ctx, detailSelect+`
		WHERE a.id = $1
	`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListRecent(ctx context.Context, limit int) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, detailSelect+`
		ORDER BY a.scheduled_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent appointments: %w", err)
	}
	return collectDetails(rows)
}

func (r *PgRepository) ListByRange(ctx context.Context, start, end time.Time, status *Status) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, detailSelect+`
		WHERE a.scheduled_at >= $1
		  AND a.scheduled_at <= $2
		  AND ($3::text IS NULL OR a.status = $3)
		ORDER BY a.scheduled_at DESC
	`, start, end, status)
	if err != nil {
		return nil, fmt.Errorf("list appointments by range: %w", err)
	}
	return collectDetails(rows)
}

func (r *PgRepository) ActiveBookings(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.scheduled_at, s.duration
		FROM appointment a
		JOIN service s ON s.id = a.service_id
		WHERE a.scheduled_at >= $1
		  AND a.scheduled_at <= $2
		  AND a.status IN ('pending', 'confirmed')
		ORDER BY a.scheduled_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.ScheduledAt, &b.Duration); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) BlockedBetween(ctx context.Context, from, to time.Time) ([]BlockedSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+blockedColumns+`
		FROM blocked_slot
		WHERE start_at <= $2
		  AND end_at >= $1
		ORDER BY start_at
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	defer rows.Close()

	var result []BlockedSlot
	for rows.Next() {
		b, err := scanBlocked(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Insert(ctx context.Context, in NewAppointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointment (name, email, phone, notes, service_id, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING `+appointmentColumns,
		in.Name, in.Email, in.Phone, in.Notes, in.ServiceID, in.ScheduledAt)

	a, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return a, nil
}

func (r *PgRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointment
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns,
		id, to, from)

	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStatusChanged
	}
	return a, err
}

func (r *PgRepository) CreateBlockedSlot(ctx context.Context, in NewBlockedSlot) (*BlockedSlot, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO blocked_slot (start_at, end_at, reason, is_recurring)
		VALUES ($1, $2, $3, $4)
		RETURNING `+blockedColumns,
		in.StartAt, in.EndAt, in.Reason, in.IsRecurring)

	b, err := scanBlocked(row)
	if err != nil {
		return nil, fmt.Errorf("insert blocked slot: %w", err)
	}
	return b, nil
}

func (r *PgRepository) DeleteBlockedSlot(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blocked_slot WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedSlotNotFound
	}
	return nil
}

func (r *PgRepository) WithBookingTx(ctx context.Context, day time.Time, fn func(tx Repository) error) error {
	if r.pool == nil {
		return errors.New("appointment: booking transaction already open")
	}
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, bookingLockClass, dayLockKey(day)); err != nil {
			return fmt.Errorf("take booking day lock: %w", err)
		}
		return fn(&PgRepository{db: tx})
	})
}

// dayLockKey encodes day's calendar date as YYYYMMDD.
func dayLockKey(day time.Time) int32 {
	y, m, d := day.Date()
	return int32(y*10000 + int(m)*100 + d)
}
