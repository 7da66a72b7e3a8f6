package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"skibook/internal/cart"
)

// CartRepository stores cart state as JSON rows in the carts table.
type CartRepository struct {
	db *DB
}

func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{db: db}
}

// Load returns an empty state for unknown keys.
func (r *CartRepository) Load(ctx context.Context, key string) (cart.State, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT state FROM carts WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.State{}, nil
	}
	if err != nil {
		return cart.State{}, fmt.Errorf("query cart: %w", err)
	}

	var state cart.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return cart.State{}, fmt.Errorf("decode cart: %w", err)
	}
	return state, nil
}

func (r *CartRepository) Save(ctx context.Context, key string, state cart.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (key, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// RedisCartRepository stores cart state as JSON strings in Redis. A positive ttl
// expires idle carts.
type RedisCartRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCartRepository(rdb *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisCartRepository) Load(ctx context.Context, key string) (cart.State, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return cart.State{}, nil
	}
	if err != nil {
		return cart.State{}, fmt.Errorf("redis get cart: %w", err)
	}

	var state cart.State
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return cart.State{}, fmt.Errorf("decode cart: %w", err)
	}
	return state, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, key string, state cart.State) error {
	if len(state.Items) == 0 {
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del cart: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
