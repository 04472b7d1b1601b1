package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON document per user under draft:{userID}. A write
// replaces the whole value, so a draft is never partially updated. When ttl
// is positive every write re-arms the key's expiry, giving native idle
// expiry in addition to the sweeper.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore returns a Store backed by rdb. ttl == 0 disables expiry.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func draftKey(userID int64) string { return fmt.Sprintf("draft:%d", userID) }

// Get loads the user's draft or returns ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, userID int64) (*Draft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("draft get: %w", err)
	}
	return decode(raw)
}

// Put replaces the user's draft document.
func (s *RedisStore) Put(ctx context.Context, d *Draft) error {
	raw, err := encode(d)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, draftKey(d.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("draft put: %w", err)
	}
	return nil
}

// Delete removes the user's draft. Deleting an absent draft is not an error.
func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("draft delete: %w", err)
	}
	return nil
}

// DeleteIdle scans draft keys and removes documents not updated since cutoff.
// Redis TTL already expires idle keys when enabled; the sweep covers drafts
// written before expiry was turned on.
func (s *RedisStore) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	var removed int
	iter := s.rdb.Scan(ctx, 0, "draft:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("draft sweep get %s: %w", key, err)
		}
		d, err := decode(raw)
		if err != nil {
			// Unreadable document: drop it rather than sweeping it forever.
			d = nil
		}
		if d == nil || d.UpdatedAt.Before(cutoff) {
			if err := s.rdb.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("draft sweep delete %s: %w", key, err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("draft sweep scan: %w", err)
	}
	return removed, nil
}

func encode(d *Draft) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("draft encode: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("draft decode: %w", err)
	}
	return &d, nil
}
