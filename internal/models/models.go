package models

import (
	"strings"
	"time"
)

type Instructor struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Avatar     string    `json:"avatar,omitempty"`
	Location   string    `json:"location,omitempty"`
	Discipline string    `json:"discipline,omitempty"`
	Biography  string    `json:"biography,omitempty"`
	HourlyRate float64   `json:"hourlyRate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Name joins first and last name.
func (i Instructor) Name() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Profile holds the optional parts of an instructor page.
type Profile struct {
	Languages []string `json:"languages"`
	Images    []string `json:"images"`
}

type Resort struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookingSlot is an availability slot an instructor configured on a date.
type BookingSlot struct {
	ID           int64  `json:"id"`
	InstructorID string `json:"instructorId"`
	Date         string `json:"date"`
	DaySlotID    *int   `json:"daySlotId"`
	StartTime    string `json:"startTime,omitempty"`
	EndTime      string `json:"endTime,omitempty"`
	Weekday      *int   `json:"weekday,omitempty"` // 0 or 7 is Sunday
}

// BookingItem is one booked slot of a confirmed booking.
type BookingItem struct {
	ID            int64     `json:"id"`
	BookingID     int64     `json:"bookingId"`
	BookingSlotID int64     `json:"bookingSlotId"`
	DaySlotID     *int      `json:"daySlotId"`
	Date          string    `json:"date"`
	StartTime     string    `json:"startTime"`
	EndTime       string    `json:"endTime"`
	TotalMinutes  int       `json:"totalMinutes"`
	HourlyRate    float64   `json:"hourlyRate"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Booking struct {
	ID           int64         `json:"id"`
	InstructorID string        `json:"instructorId"`
	CustomerID   string        `json:"customerId"`
	Status       string        `json:"status"`
	Items        []BookingItem `json:"items"`
	CreatedAt    time.Time     `json:"createdAt"`
}

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCanceled  = "canceled"
)
