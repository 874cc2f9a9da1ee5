package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// appendAttempts bounds the write retries for a single record.
	appendAttempts = 3
	retryBackoff   = 200 * time.Millisecond
)

// RedisStore persists records as JSON in a capped redis list, newest first.
type RedisStore struct {
	rdb    *redis.Client
	key    string
	maxLen int64
}

// NewRedisStore creates a store writing to the given list key, trimmed to
// maxLen entries (0 disables trimming).
func NewRedisStore(rdb *redis.Client, key string, maxLen int64) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, maxLen: maxLen}
}

// Append pushes the record, retrying transient failures a bounded number of
// times.
func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal activity record: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
		}

		pipe := s.rdb.Pipeline()
		pipe.LPush(ctx, s.key, data)
		if s.maxLen > 0 {
			pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("failed to persist activity record after %d attempts: %w", appendAttempts, lastErr)
}

// Recent returns up to n most recent records.
func (s *RedisStore) Recent(ctx context.Context, n int64) ([]Record, error) {
	raw, err := s.rdb.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read activity records: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue // skip corrupt entries
		}
		records = append(records, rec)
	}
	return records, nil
}

// MemoryStore keeps records in memory. Intended for tests and demos.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}
