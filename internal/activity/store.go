package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	feedKeyPrefix = "activity:"
)

// Store はユーザーごとのアクティビティ履歴を Redis のリストに保存します。
type Store struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxEntries int
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client, ttl time.Duration, maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Store{
		rdb:        rdb,
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Append はイベントを先頭に追加し、上限件数に切り詰めます。
func (s *Store) Append(ctx context.Context, owner string, event Event) error {
	if owner == "" {
		return fmt.Errorf("owner is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := feedKey(owner)
	tx := s.rdb.TxPipeline()
	tx.LPush(ctx, key, payload)
	tx.LTrim(ctx, key, 0, int64(s.maxEntries-1))
	if s.ttl > 0 {
		tx.Expire(ctx, key, s.ttl)
	}
	_, err = tx.Exec(ctx)
	return err
}

// Recent は新しい順に最大 limit 件のイベントを返します。
func (s *Store) Recent(ctx context.Context, owner string, limit int) ([]Event, error) {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}
	values, err := s.rdb.LRange(ctx, feedKey(owner), 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return []Event{}, nil
		}
		return nil, err
	}

	events := make([]Event, 0, len(values))
	for _, v := range values {
		var event Event
		if err := json.Unmarshal([]byte(v), &event); err != nil {
			return nil, err
		}
		event.Owner = owner
		events = append(events, event)
	}
	return events, nil
}

func feedKey(owner string) string {
	return feedKeyPrefix + owner
}

// Close は Redis クライアントを閉じます。
func (s *Store) Close() error {
	return s.rdb.Close()
}
