package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skibook/internal/cart"
	"skibook/internal/config"
	"skibook/internal/dayslot"
	"skibook/internal/models"
	"skibook/internal/occupancy"
	"skibook/internal/slots"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func ptr(v int) *int {
	return &v
}

func day(d int) time.Time {
	return time.Date(2025, 2, d, 0, 0, 0, 0, time.UTC)
}

func seedInstructor(t *testing.T, db *DB, id, first string) {
	t.Helper()
	require.NoError(t, db.CreateInstructor(context.Background(), &models.Instructor{
		ID: id, FirstName: first, LastName: "Test", HourlyRate: 100,
	}))
}

func TestDaySlots(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.EnsureDaySlots(ctx, dayslot.Default().Types()))
	require.NoError(t, db.EnsureDaySlots(ctx, []dayslot.Type{
		{ID: dayslot.Lunch, Name: "Midday", DefaultStart: "12:00:00", DefaultEnd: "13:30:00", Hours: 1.5, Bookable: true},
	}))

	types, err := db.DaySlots(ctx)
	require.NoError(t, err)
	require.Len(t, types, 5)
	assert.Equal(t, "Full Day", types[0].Name)
	assert.False(t, types[0].Bookable)
	assert.Equal(t, "Midday", types[2].Name)
	assert.Equal(t, 1.5, types[2].Hours)
}

func TestInstructorsAndCustomers(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	seedInstructor(t, db, "b", "Bea")
	seedInstructor(t, db, "a", "Anna")
	require.NoError(t, db.CreateCustomer(ctx, &models.Customer{ID: "c1", Name: "Carla"}))

	in, err := db.GetInstructor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Anna Test", in.Name())
	assert.Equal(t, 100.0, in.HourlyRate)
	assert.False(t, in.CreatedAt.IsZero())

	_, err = db.GetInstructor(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := db.ListInstructors(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Anna", list[0].FirstName)

	customers, err := db.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, 1)

	ni, nc, err := db.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ni)
	assert.Equal(t, 1, nc)
}

func TestBookingSlots(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedInstructor(t, db, "a", "Anna")
	seedInstructor(t, db, "b", "Bea")

	s := &models.BookingSlot{InstructorID: "a", Date: "2025-02-10", DaySlotID: ptr(dayslot.Morning), Weekday: ptr(1), StartTime: "09:30:00"}
	require.NoError(t, db.AddBookingSlot(ctx, s))
	assert.NotZero(t, s.ID)
	require.NoError(t, db.AddBookingSlot(ctx, &models.BookingSlot{InstructorID: "b", Date: "2025-02-09"}))

	all, err := db.ListBookingSlots(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Nil(t, all[0].DaySlotID)
	assert.Nil(t, all[0].Weekday)

	mine, err := db.ListBookingSlots(ctx, "a")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].DaySlotID)
	assert.Equal(t, dayslot.Morning, *mine[0].DaySlotID)
	assert.Equal(t, "09:30:00", mine[0].StartTime)
}

func TestOccupancy(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedInstructor(t, db, "a", "Anna")
	seedInstructor(t, db, "b", "Bea")

	confirmed := &models.Booking{
		InstructorID: "a",
		Status:       models.BookingStatusConfirmed,
		Items: []models.BookingItem{
			{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"},
			{DaySlotID: ptr(dayslot.Lunch), Date: "2025-02-11"},
			{DaySlotID: nil, Date: "2025-02-11"},
			{DaySlotID: ptr(dayslot.Evening), Date: "2025-03-01"},
		},
	}
	require.NoError(t, db.CreateBooking(ctx, confirmed))
	assert.NotZero(t, confirmed.ID)
	assert.Equal(t, confirmed.ID, confirmed.Items[0].BookingID)

	canceled := &models.Booking{InstructorID: "a", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Afternoon), Date: "2025-02-10"}}}
	require.NoError(t, db.CreateBooking(ctx, canceled))
	owner, err := db.UpdateBookingStatus(ctx, canceled.ID, models.BookingStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, "a", owner)
	_, err = db.UpdateBookingStatus(ctx, 999, models.BookingStatusCanceled)
	assert.ErrorIs(t, err, ErrNotFound)

	other := &models.Booking{InstructorID: "b", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Lunch), Date: "2025-02-10"}}}
	require.NoError(t, db.CreateBooking(ctx, other))

	records, err := db.Occupancy(ctx, "a", day(10), day(11))
	require.NoError(t, err)
	require.Len(t, records, 3)

	idx := occupancy.Build(records)
	assert.True(t, idx.Has("2025-02-10", dayslot.Morning))
	assert.False(t, idx.Has("2025-02-10", dayslot.Afternoon), "canceled booking")
	assert.False(t, idx.Has("2025-02-10", dayslot.Lunch), "other instructor")
	assert.True(t, idx.Has("2025-02-11", dayslot.Lunch))
	assert.Equal(t, 2, idx.Len())

	grid := slots.Generate(day(10), day(11), idx, 100, dayslot.Default().Bookable())
	assert.Len(t, slots.Available(grid), 6)
}

func sampleState() cart.State {
	return cart.State{Items: []cart.Item{{
		ID:           "cart-1",
		InstructorID: "a",
		SelectedSlots: []slots.SelectedSlot{
			{Date: "2025-02-10", DaySlotID: dayslot.Morning, DaySlotName: "Morning", Hours: 3, Price: 300},
		},
		TotalHours: 3,
		TotalPrice: 300,
		AddedAt:    1739174400000,
	}}}
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(newTestDB(t))

	empty, err := repo.Load(ctx, "raven-cart-storage:s1")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	require.NoError(t, repo.Save(ctx, "raven-cart-storage:s1", sampleState()))
	got, err := repo.Load(ctx, "raven-cart-storage:s1")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	require.NoError(t, repo.Save(ctx, "raven-cart-storage:s1", cart.State{}))
	got, err = repo.Load(ctx, "raven-cart-storage:s1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCartRepository_WithCart(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(newTestDB(t))

	c := cart.New(repo, "k")
	item, err := c.Add(ctx, cart.Candidate{
		InstructorID:  "a",
		SelectedSlots: sampleState().Items[0].SelectedSlots,
	})
	require.NoError(t, err)

	restored, err := cart.Load(ctx, repo, "k")
	require.NoError(t, err)
	assert.Equal(t, 300.0, restored.Total())
	assert.Equal(t, item.ID, restored.Items()[0].ID)
}

func TestRedisCartRepository(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	repo := NewRedisCartRepository(rdb, time.Hour)

	empty, err := repo.Load(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	require.NoError(t, repo.Save(ctx, "k", sampleState()))
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Hour, mr.TTL("k"))

	got, err := repo.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	require.NoError(t, repo.Save(ctx, "k", cart.State{}))
	assert.False(t, mr.Exists("k"))

	mr.FastForward(2 * time.Hour)
	require.NoError(t, repo.Save(ctx, "k", sampleState()))
	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("k"), "idle cart expires")

	require.NoError(t, mr.Set("bad", "{"))
	_, err = repo.Load(ctx, "bad")
	assert.Error(t, err)
}

type countingSource struct {
	calls   int
	records []occupancy.Record
	err     error
}

func (s *countingSource) Occupancy(context.Context, string, time.Time, time.Time) ([]occupancy.Record, error) {
	s.calls++
	return s.records, s.err
}

func TestCachedOccupancy(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	src := &countingSource{records: []occupancy.Record{{Date: "2025-02-10", DaySlotID: ptr(dayslot.Morning)}}}
	cache := NewCachedOccupancy(src, rdb, time.Minute)

	first, err := cache.Occupancy(ctx, "a", day(10), day(11))
	require.NoError(t, err)
	second, err := cache.Occupancy(ctx, "a", day(10), day(11))
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("occupancy:a:2025-02-10:2025-02-11"))

	_, err = cache.Occupancy(ctx, "a", day(10), day(12))
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls, "different window misses")

	require.NoError(t, cache.Invalidate(ctx, "a"))
	assert.False(t, mr.Exists("occupancy:a:2025-02-10:2025-02-11"))
	_, err = cache.Occupancy(ctx, "a", day(10), day(11))
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCachedOccupancy_PassThrough(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{err: errors.New("db down")}
	cache := NewCachedOccupancy(src, nil, time.Minute)

	_, err := cache.Occupancy(ctx, "a", day(10), day(11))
	assert.Error(t, err)
	_, err = cache.Occupancy(ctx, "a", day(10), day(11))
	assert.Error(t, err)
	assert.Equal(t, 2, src.calls)
	assert.NoError(t, cache.Invalidate(ctx, "a"))
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.New(io.Discard)
	dir := filepath.Join(t.TempDir(), "backups")

	seedInstructor(t, db, "a", "Anna")

	svc := NewBackupService(db, config.BackupConfig{Enabled: true, Path: dir, RetentionDays: 7}, time.Hour, &logger)
	svc.now = func() time.Time { return time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC) }

	path, err := svc.PerformBackup(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	snapshot, err := Open(path)
	require.NoError(t, err)
	in, err := snapshot.GetInstructor(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Anna", in.FirstName)
	require.NoError(t, snapshot.Close())

	again, err := svc.PerformBackup(context.Background())
	require.NoError(t, err, "same-second backup replaces the file")
	assert.Equal(t, path, again)

	old := filepath.Join(dir, "backup_20000101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(unrelated, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, unrelated)
	assert.FileExists(t, path)
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewBackupService(nil, config.BackupConfig{}, 0, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
}

func TestCreateBooking_SlotTaken(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedInstructor(t, db, "a", "Anna")
	seedInstructor(t, db, "b", "Bea")

	first := &models.Booking{InstructorID: "a", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"}}}
	require.NoError(t, db.CreateBooking(ctx, first))

	clash := &models.Booking{InstructorID: "a", Items: []models.BookingItem{
		{DaySlotID: ptr(dayslot.Lunch), Date: "2025-02-10"},
		{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"},
	}}
	assert.ErrorIs(t, db.CreateBooking(ctx, clash), ErrSlotTaken)

	records, err := db.Occupancy(ctx, "a", day(10), day(10))
	require.NoError(t, err)
	assert.Len(t, records, 1, "failed booking leaves no items")

	require.NoError(t, db.CreateBooking(ctx, &models.Booking{InstructorID: "b", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"}}}))

	_, err = db.UpdateBookingStatus(ctx, first.ID, models.BookingStatusCanceled)
	require.NoError(t, err)
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{InstructorID: "a", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"}}}),
		"canceled booking frees the cell")
}

func TestReferencedDaySlots(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedInstructor(t, db, "a", "Anna")

	ids, err := db.ReferencedDaySlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, db.AddBookingSlot(ctx, &models.BookingSlot{InstructorID: "a", Date: "2025-02-10", DaySlotID: ptr(dayslot.Evening)}))
	require.NoError(t, db.AddBookingSlot(ctx, &models.BookingSlot{InstructorID: "a", Date: "2025-02-11"}))
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{InstructorID: "a", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Morning), Date: "2025-02-10"}}}))
	canceled := &models.Booking{InstructorID: "a", Items: []models.BookingItem{{DaySlotID: ptr(dayslot.Lunch), Date: "2025-02-10"}}}
	require.NoError(t, db.CreateBooking(ctx, canceled))
	_, err = db.UpdateBookingStatus(ctx, canceled.ID, models.BookingStatusCanceled)
	require.NoError(t, err)

	ids, err = db.ReferencedDaySlots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{dayslot.Morning, dayslot.Evening}, ids)
}

func TestProfilesAndResorts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.CreateInstructor(ctx, &models.Instructor{ID: "a", FirstName: "Anna", Biography: "Race coach"}))
	seedInstructor(t, db, "b", "Bea")

	require.NoError(t, db.AddInstructorImage(ctx, "a", "https://img/1.jpg"))
	require.NoError(t, db.AddInstructorImage(ctx, "a", "https://img/2.jpg"))
	require.NoError(t, db.AddInstructorLanguage(ctx, "a", "German"))
	require.NoError(t, db.AddInstructorLanguage(ctx, "a", "English"))
	require.NoError(t, db.AddInstructorLanguage(ctx, "a", "English"))

	in, err := db.GetInstructor(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Race coach", in.Biography)

	profiles, err := db.InstructorProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, []string{"https://img/1.jpg", "https://img/2.jpg"}, profiles["a"].Images)
	assert.Equal(t, []string{"English", "German"}, profiles["a"].Languages)

	require.NoError(t, db.CreateResort(ctx, &models.Resort{Name: "Zermatt", Country: "CH"}))
	require.NoError(t, db.CreateResort(ctx, &models.Resort{Name: "Alta"}))
	assert.Error(t, db.CreateResort(ctx, &models.Resort{Name: "Alta"}))

	resorts, err := db.ListResorts(ctx)
	require.NoError(t, err)
	require.Len(t, resorts, 2)
	assert.Equal(t, "Alta", resorts[0].Name)
	assert.Equal(t, "CH", resorts[1].Country)
}
