package storage

import (
	"context"
	"fmt"

	"skibook/internal/dayslot"
)

// EnsureDaySlots upserts the catalog into day_slots.
func (db *DB) EnsureDaySlots(ctx context.Context, types []dayslot.Type) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, t := range types {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO day_slots (id, name, default_start_time, default_end_time, hours, bookable)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				default_start_time = excluded.default_start_time,
				default_end_time = excluded.default_end_time,
				hours = excluded.hours,
				bookable = excluded.bookable`,
			t.ID, t.Name, t.DefaultStart, t.DefaultEnd, t.Hours, t.Bookable,
		)
		if err != nil {
			return fmt.Errorf("upsert day slot %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// DaySlots returns all day slots ordered by id.
func (db *DB) DaySlots(ctx context.Context) ([]dayslot.Type, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, default_start_time, default_end_time, hours, bookable
		FROM day_slots ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query day slots: %w", err)
	}
	defer rows.Close()

	var types []dayslot.Type
	for rows.Next() {
		var t dayslot.Type
		if err := rows.Scan(&t.ID, &t.Name, &t.DefaultStart, &t.DefaultEnd, &t.Hours, &t.Bookable); err != nil {
			return nil, fmt.Errorf("scan day slot: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}
