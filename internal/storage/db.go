// Package storage persists instructors, availability, bookings and carts in SQLite
// with optional Redis-backed carts and occupancy caching.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned when a booking item hits a cell another active booking holds.
	ErrSlotTaken = errors.New("slot already booked")
)

// DB wraps sql.DB.
type DB struct {
	*sql.DB
	path string
}

// Open opens the database at path and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS instructors (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			discipline TEXT NOT NULL DEFAULT '',
			biography TEXT NOT NULL DEFAULT '',
			hourly_rate REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS instructor_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instructor_id TEXT NOT NULL,
			image_url TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (instructor_id) REFERENCES instructors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS instructor_languages (
			instructor_id TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (instructor_id, name),
			FOREIGN KEY (instructor_id) REFERENCES instructors(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS resorts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			country TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS day_slots (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			default_start_time TEXT NOT NULL,
			default_end_time TEXT NOT NULL,
			hours REAL NOT NULL,
			bookable BOOLEAN NOT NULL DEFAULT 1
		)`,

		// Availability configured by instructors
		`CREATE TABLE IF NOT EXISTS booking_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instructor_id TEXT NOT NULL,
			date TEXT NOT NULL,
			day_slot_id INTEGER,
			slot_start_time TEXT NOT NULL DEFAULT '',
			slot_end_time TEXT NOT NULL DEFAULT '',
			weekday INTEGER,
			FOREIGN KEY (instructor_id) REFERENCES instructors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			instructor_id TEXT NOT NULL,
			customer_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (instructor_id) REFERENCES instructors(id)
		)`,

		`CREATE TABLE IF NOT EXISTS booking_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL,
			booking_slot_id INTEGER NOT NULL DEFAULT 0,
			day_slot_id INTEGER,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL DEFAULT '',
			end_time TEXT NOT NULL DEFAULT '',
			total_minutes INTEGER NOT NULL DEFAULT 0,
			hourly_rate REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS carts (
			key TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_booking_slots_instructor ON booking_slots(instructor_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_instructor ON bookings(instructor_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_items_booking ON booking_items(booking_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_instructor_images_instructor ON instructor_images(instructor_id)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
