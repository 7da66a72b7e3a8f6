package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skibook/internal/models"
	"skibook/internal/occupancy"
)

// AddBookingSlot stores an availability slot and sets its id.
func (db *DB) AddBookingSlot(ctx context.Context, s *models.BookingSlot) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO booking_slots (instructor_id, date, day_slot_id, slot_start_time, slot_end_time, weekday)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.InstructorID, s.Date, nullInt(s.DaySlotID), s.StartTime, s.EndTime, nullInt(s.Weekday),
	)
	if err != nil {
		return fmt.Errorf("insert booking slot: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// ListBookingSlots returns availability slots of one instructor, or of all when
// instructorID is empty.
func (db *DB) ListBookingSlots(ctx context.Context, instructorID string) ([]models.BookingSlot, error) {
	query := `SELECT id, instructor_id, date, day_slot_id, slot_start_time, slot_end_time, weekday FROM booking_slots`
	var args []any
	if instructorID != "" {
		query += ` WHERE instructor_id = ?`
		args = append(args, instructorID)
	}
	query += ` ORDER BY date, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query booking slots: %w", err)
	}
	defer rows.Close()

	var out []models.BookingSlot
	for rows.Next() {
		var (
			s       models.BookingSlot
			daySlot sql.NullInt64
			weekday sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.InstructorID, &s.Date, &daySlot, &s.StartTime, &s.EndTime, &weekday); err != nil {
			return nil, fmt.Errorf("scan booking slot: %w", err)
		}
		s.DaySlotID = intPtr(daySlot)
		s.Weekday = intPtr(weekday)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateBooking stores a booking with its items in one transaction. An item on a
// (date, day slot) cell already held by an uncanceled booking of the same
// instructor aborts the whole booking with ErrSlotTaken.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (instructor_id, customer_id, status, created_at) VALUES (?, ?, ?, ?)`,
		b.InstructorID, b.CustomerID, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	for i := range b.Items {
		it := &b.Items[i]
		it.BookingID = b.ID
		if it.CreatedAt.IsZero() {
			it.CreatedAt = b.CreatedAt
		}
		if it.DaySlotID != nil {
			var taken int
			err := tx.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM booking_items bi
				JOIN bookings b ON b.id = bi.booking_id
				WHERE b.instructor_id = ? AND b.status != ? AND b.id != ? AND bi.date = ? AND bi.day_slot_id = ?`,
				b.InstructorID, models.BookingStatusCanceled, b.ID, it.Date, *it.DaySlotID,
			).Scan(&taken)
			if err != nil {
				return fmt.Errorf("check item %d: %w", i, err)
			}
			if taken > 0 {
				return fmt.Errorf("%s day slot %d: %w", it.Date, *it.DaySlotID, ErrSlotTaken)
			}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO booking_items (booking_id, booking_slot_id, day_slot_id, date, start_time, end_time, total_minutes, hourly_rate, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.BookingID, it.BookingSlotID, nullInt(it.DaySlotID), it.Date, it.StartTime, it.EndTime, it.TotalMinutes, it.HourlyRate, it.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert booking item %d: %w", i, err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateBookingStatus changes a booking status and returns the booking's instructor.
func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) (string, error) {
	var instructorID string
	err := db.QueryRowContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? RETURNING instructor_id`, status, id,
	).Scan(&instructorID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("update booking %d: %w", id, err)
	}
	return instructorID, nil
}

// ReferencedDaySlots returns the distinct day slot ids used by availability rows
// or uncanceled booking items.
func (db *DB) ReferencedDaySlots(ctx context.Context) ([]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day_slot_id FROM booking_slots WHERE day_slot_id IS NOT NULL
		UNION
		SELECT bi.day_slot_id FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE bi.day_slot_id IS NOT NULL AND b.status != ?
		ORDER BY 1`, models.BookingStatusCanceled)
	if err != nil {
		return nil, fmt.Errorf("query referenced day slots: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan day slot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Occupancy returns booked (date, day slot) rows of an instructor within [start, end].
// Canceled bookings are excluded.
func (db *DB) Occupancy(ctx context.Context, instructorID string, start, end time.Time) ([]occupancy.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT bi.date, bi.day_slot_id
		FROM booking_items bi
		JOIN bookings b ON b.id = bi.booking_id
		WHERE b.instructor_id = ? AND b.status != ? AND bi.date >= ? AND bi.date <= ?
		ORDER BY bi.date, bi.id`,
		instructorID, models.BookingStatusCanceled,
		start.Format(occupancy.DateLayout), end.Format(occupancy.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query occupancy: %w", err)
	}
	defer rows.Close()

	var out []occupancy.Record
	for rows.Next() {
		var (
			r       occupancy.Record
			daySlot sql.NullInt64
		)
		if err := rows.Scan(&r.Date, &daySlot); err != nil {
			return nil, fmt.Errorf("scan occupancy: %w", err)
		}
		r.DaySlotID = intPtr(daySlot)
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
