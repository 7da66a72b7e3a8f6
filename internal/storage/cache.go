package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skibook/internal/metrics"
	"skibook/internal/occupancy"
)

// OccupancySource supplies booked rows for an instructor and date window.
type OccupancySource interface {
	Occupancy(ctx context.Context, instructorID string, start, end time.Time) ([]occupancy.Record, error)
}

// CachedOccupancy is a read-through Redis cache in front of an OccupancySource.
// With a nil client or non-positive ttl it passes every call through.
type CachedOccupancy struct {
	src OccupancySource
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedOccupancy(src OccupancySource, rdb *redis.Client, ttl time.Duration) *CachedOccupancy {
	return &CachedOccupancy{src: src, rdb: rdb, ttl: ttl}
}

func occupancyKey(instructorID string, start, end time.Time) string {
	return fmt.Sprintf("occupancy:%s:%s:%s", instructorID, start.Format(occupancy.DateLayout), end.Format(occupancy.DateLayout))
}

func (c *CachedOccupancy) Occupancy(ctx context.Context, instructorID string, start, end time.Time) ([]occupancy.Record, error) {
	key := occupancyKey(instructorID, start, end)

	var cached []occupancy.Record
	if c.readCache(ctx, key, &cached) {
		metrics.IncOccupancyCache("hit")
		return cached, nil
	}
	metrics.IncOccupancyCache("miss")

	records, err := c.src.Occupancy(ctx, instructorID, start, end)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, key, records)
	return records, nil
}

// Invalidate drops every cached window of an instructor.
func (c *CachedOccupancy) Invalidate(ctx context.Context, instructorID string) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("occupancy:%s:*", instructorID), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return iter.Err()
}

func (c *CachedOccupancy) readCache(ctx context.Context, key string, out any) bool {
	if c.rdb == nil || c.ttl <= 0 {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *CachedOccupancy) writeCache(ctx context.Context, key string, val any) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, data, c.ttl).Err()
}
