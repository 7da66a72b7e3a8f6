package search

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skibook/internal/dayslot"
	"skibook/internal/models"
	"skibook/internal/occupancy"
	"skibook/internal/slots"
)

func day(d int) time.Time {
	return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{}, 90)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Zero(t, q.Offset)
	assert.False(t, q.HasDates())

	q, err = ParseQuery(url.Values{
		"location":      {" Zermatt "},
		"disciplineIds": {"ski,,snowboard"},
		"limit":         {"500"},
		"offset":        {"5"},
		"startDate":     {"2025-02-10"},
		"endDate":       {"2025-02-12"},
	}, 90)
	require.NoError(t, err)
	assert.Equal(t, "Zermatt", q.Location)
	assert.Equal(t, []string{"ski", "snowboard"}, q.Disciplines)
	assert.Equal(t, MaxLimit, q.Limit)
	assert.Equal(t, 5, q.Offset)
	require.True(t, q.HasDates())
	start, end := q.Window()
	assert.Equal(t, day(10), start)
	assert.Equal(t, day(12), end)
}

func TestParseQuery_Validation(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		wantErr string
	}{
		{"bad limit", url.Values{"limit": {"x"}}, "limit must be a positive number"},
		{"zero limit", url.Values{"limit": {"0"}}, "limit must be a positive number"},
		{"negative offset", url.Values{"offset": {"-1"}}, "offset must be a non-negative number"},
		{"start only", url.Values{"startDate": {"2025-02-10"}}, "must be given together"},
		{"bad start", url.Values{"startDate": {"10.02.2025"}, "endDate": {"2025-02-12"}}, "startDate"},
		{"inverted", url.Values{"startDate": {"2025-02-12"}, "endDate": {"2025-02-10"}}, "before or equal"},
		{"too long", url.Values{"startDate": {"2025-01-01"}, "endDate": {"2025-06-01"}}, "maximum of 90 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuery(tt.values, 90)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMatches(t *testing.T) {
	in := models.Instructor{ID: "a", Location: "Zermatt, CH", Discipline: "Ski"}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"no filters", Query{}, true},
		{"location substring", Query{Location: "zerm"}, true},
		{"location miss", Query{Location: "Alta"}, false},
		{"discipline any of", Query{Disciplines: []string{"snowboard", "ski"}}, true},
		{"discipline miss", Query{Disciplines: []string{"snowboard"}}, false},
		{"both", Query{Location: "CH", Disciplines: []string{"SKI"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(in))
		})
	}
}

func TestFullyBooked(t *testing.T) {
	types := dayslot.Default().Bookable()
	free := slots.Generate(day(10), day(11), occupancy.Build(nil), 50, types)
	assert.False(t, FullyBooked(free))
	assert.False(t, FullyBooked(nil))

	var records []occupancy.Record
	for _, typ := range types {
		id := typ.ID
		records = append(records, occupancy.Record{Date: "2025-02-10", DaySlotID: &id})
	}
	oneDay := slots.Generate(day(10), day(10), occupancy.Build(records), 50, types)
	assert.True(t, FullyBooked(oneDay))

	twoDays := slots.Generate(day(10), day(11), occupancy.Build(records), 50, types)
	assert.False(t, FullyBooked(twoDays), "a free day keeps the instructor")
}

func TestNewResultAndPage(t *testing.T) {
	r := NewResult(models.Instructor{ID: "a", HourlyRate: 75}, models.Profile{Languages: []string{"German"}})
	require.NotNil(t, r.MinPrice)
	assert.Equal(t, 75.0, *r.MinPrice)
	assert.Equal(t, []string{}, r.Images)

	assert.Nil(t, NewResult(models.Instructor{ID: "b"}, models.Profile{}).MinPrice)

	results := []Result{{Instructor: models.Instructor{ID: "1"}}, {Instructor: models.Instructor{ID: "2"}}, {Instructor: models.Instructor{ID: "3"}}}
	page := Query{Limit: 2, Offset: 1}.Page(results)
	require.Len(t, page, 2)
	assert.Equal(t, "2", page[0].ID)
	assert.Empty(t, Query{Limit: 2, Offset: 3}.Page(results))
	assert.Len(t, Query{Limit: 20}.Page(results), 3)
}
