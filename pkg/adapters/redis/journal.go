package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/tether/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Journal implements ports.Journal using one Redis list per store.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	maxLen int64
}

type Option func(*Journal)

// WithTTL sets the expiration of a store's journal, refreshed on every append.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// WithPrefix sets the key prefix for journals.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithMaxLen keeps only the newest n records per store (0 means unbounded).
func WithMaxLen(n int64) Option {
	return func(j *Journal) {
		j.maxLen = n
	}
}

// New creates a new Redis journal with options.
func New(address, password string, db int, opts ...Option) *Journal {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis journal from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Journal {
	journal := &Journal{
		client: client,
		prefix: "tether:journal:",
	}

	for _, opt := range opts {
		opt(journal)
	}

	return journal
}

func (j *Journal) key(storeID string) string {
	return j.prefix + storeID
}

// Append pushes the record to the tail of the store's list.
func (j *Journal) Append(ctx context.Context, rec domain.ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := j.key(rec.StoreID)
	pipe := j.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if j.maxLen > 0 {
		pipe.LTrim(ctx, key, -j.maxLen, -1)
	}
	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// List returns the records of a store, oldest first.
func (j *Journal) List(ctx context.Context, storeID string) ([]domain.ActionRecord, error) {
	vals, err := j.client.LRange(ctx, j.key(storeID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list from redis: %w", err)
	}

	records := make([]domain.ActionRecord, 0, len(vals))
	for _, val := range vals {
		var rec domain.ActionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close closes the redis client.
func (j *Journal) Close() error {
	return j.client.Close()
}
