// Package search filters instructors for the discovery page.
package search

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"skibook/internal/models"
	"skibook/internal/slots"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is a parsed discovery request. Zero-value filters match everything.
type Query struct {
	Location    string   `json:"location,omitempty"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Disciplines []string `json:"disciplineIds,omitempty"`
	Limit       int      `json:"limit"`
	Offset      int      `json:"offset"`

	start, end time.Time
}

// ParseQuery reads location, startDate, endDate, disciplineIds, limit and offset.
// Dates must be given together and span at most maxRangeDays.
func ParseQuery(v url.Values, maxRangeDays int) (Query, error) {
	q := Query{
		Location:  strings.TrimSpace(v.Get("location")),
		StartDate: v.Get("startDate"),
		EndDate:   v.Get("endDate"),
		Limit:     DefaultLimit,
	}
	for _, d := range strings.Split(v.Get("disciplineIds"), ",") {
		if d = strings.TrimSpace(d); d != "" {
			q.Disciplines = append(q.Disciplines, d)
		}
	}

	var err error
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit <= 0 {
			return Query{}, errors.New("limit must be a positive number")
		}
		if q.Limit > MaxLimit {
			q.Limit = MaxLimit
		}
	}
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil || q.Offset < 0 {
			return Query{}, errors.New("offset must be a non-negative number")
		}
	}

	if q.StartDate == "" && q.EndDate == "" {
		return q, nil
	}
	if q.StartDate == "" || q.EndDate == "" {
		return Query{}, errors.New("startDate and endDate must be given together")
	}
	if q.start, err = slots.ParseDate(q.StartDate); err != nil {
		return Query{}, fmt.Errorf("startDate: %w", err)
	}
	if q.end, err = slots.ParseDate(q.EndDate); err != nil {
		return Query{}, fmt.Errorf("endDate: %w", err)
	}
	if q.start.After(q.end) {
		return Query{}, errors.New("startDate must be before or equal to endDate")
	}
	if days := int(q.end.Sub(q.start).Hours() / 24); days > maxRangeDays {
		return Query{}, fmt.Errorf("date range exceeds maximum of %d days", maxRangeDays)
	}
	return q, nil
}

// HasDates reports whether the availability filter applies.
func (q Query) HasDates() bool {
	return !q.start.IsZero()
}

// Window returns the parsed date range.
func (q Query) Window() (start, end time.Time) {
	return q.start, q.end
}

// Matches applies the location and discipline filters, both case-insensitive.
// Location is a substring match.
func (q Query) Matches(in models.Instructor) bool {
	if q.Location != "" && !strings.Contains(strings.ToLower(in.Location), strings.ToLower(q.Location)) {
		return false
	}
	if len(q.Disciplines) == 0 {
		return true
	}
	for _, d := range q.Disciplines {
		if strings.EqualFold(d, in.Discipline) {
			return true
		}
	}
	return false
}

// Result is one instructor card.
type Result struct {
	models.Instructor
	Languages []string `json:"languages"`
	Images    []string `json:"images"`
	MinPrice  *float64 `json:"minPrice"`
}

func NewResult(in models.Instructor, p models.Profile) Result {
	r := Result{Instructor: in, Languages: p.Languages, Images: p.Images}
	if r.Languages == nil {
		r.Languages = []string{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if in.HourlyRate > 0 {
		rate := in.HourlyRate
		r.MinPrice = &rate
	}
	return r
}

// FullyBooked reports whether a non-empty grid has no available cell.
func FullyBooked(grid []slots.AvailableSlot) bool {
	return len(grid) > 0 && len(slots.Available(grid)) == 0
}

// Page returns the window of results selected by limit and offset.
func (q Query) Page(results []Result) []Result {
	if q.Offset >= len(results) {
		return []Result{}
	}
	end := q.Offset + q.Limit
	if end > len(results) {
		end = len(results)
	}
	return results[q.Offset:end]
}
