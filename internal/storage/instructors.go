package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skibook/internal/models"
)

func (db *DB) CreateInstructor(ctx context.Context, in *models.Instructor) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO instructors (id, first_name, last_name, avatar, location, discipline, biography, hourly_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.FirstName, in.LastName, in.Avatar, in.Location, in.Discipline, in.Biography, in.HourlyRate, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instructor %s: %w", in.ID, err)
	}
	return nil
}

// GetInstructor returns ErrNotFound for unknown ids.
func (db *DB) GetInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, avatar, location, discipline, biography, hourly_rate, created_at
		FROM instructors WHERE id = ?`, id)

	in, err := scanInstructor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instructor %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get instructor %s: %w", id, err)
	}
	return in, nil
}

// ListInstructors returns instructors ordered by first name.
func (db *DB) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, first_name, last_name, avatar, location, discipline, biography, hourly_rate, created_at
		FROM instructors ORDER BY first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("query instructors: %w", err)
	}
	defer rows.Close()

	var out []models.Instructor
	for rows.Next() {
		in, err := scanInstructor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstructor(s scanner) (*models.Instructor, error) {
	var in models.Instructor
	if err := s.Scan(&in.ID, &in.FirstName, &in.LastName, &in.Avatar, &in.Location, &in.Discipline, &in.Biography, &in.HourlyRate, &in.CreatedAt); err != nil {
		return nil, err
	}
	return &in, nil
}

func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)`, c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert customer %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM customers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Counts returns the number of instructors and customers.
func (db *DB) Counts(ctx context.Context) (instructors, customers int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM instructors), (SELECT COUNT(*) FROM customers)`,
	).Scan(&instructors, &customers)
	if err != nil {
		return 0, 0, fmt.Errorf("count users: %w", err)
	}
	return instructors, customers, nil
}

func (db *DB) AddInstructorImage(ctx context.Context, instructorID, url string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO instructor_images (instructor_id, image_url) VALUES (?, ?)`, instructorID, url)
	if err != nil {
		return fmt.Errorf("insert image for %s: %w", instructorID, err)
	}
	return nil
}

func (db *DB) AddInstructorLanguage(ctx context.Context, instructorID, name string) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO instructor_languages (instructor_id, name) VALUES (?, ?)`, instructorID, name)
	if err != nil {
		return fmt.Errorf("insert language for %s: %w", instructorID, err)
	}
	return nil
}

// InstructorProfiles returns gallery images and languages keyed by instructor id.
// Instructors with neither are absent from the map.
func (db *DB) InstructorProfiles(ctx context.Context) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile)

	rows, err := db.QueryContext(ctx, `SELECT instructor_id, image_url FROM instructor_images ORDER BY instructor_id, id`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	for rows.Next() {
		var id, url string
		if err := rows.Scan(&id, &url); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan image: %w", err)
		}
		p := out[id]
		p.Images = append(p.Images, url)
		out[id] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, `SELECT instructor_id, name FROM instructor_languages ORDER BY instructor_id, name`)
	if err != nil {
		return nil, fmt.Errorf("query languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		p := out[id]
		p.Languages = append(p.Languages, name)
		out[id] = p
	}
	return out, rows.Err()
}

func (db *DB) CreateResort(ctx context.Context, r *models.Resort) error {
	res, err := db.ExecContext(ctx, `INSERT INTO resorts (name, country) VALUES (?, ?)`, r.Name, r.Country)
	if err != nil {
		return fmt.Errorf("insert resort %s: %w", r.Name, err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ListResorts returns resorts ordered by name.
func (db *DB) ListResorts(ctx context.Context) ([]models.Resort, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, country FROM resorts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query resorts: %w", err)
	}
	defer rows.Close()

	var out []models.Resort
	for rows.Next() {
		var r models.Resort
		if err := rows.Scan(&r.ID, &r.Name, &r.Country); err != nil {
			return nil, fmt.Errorf("scan resort: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
