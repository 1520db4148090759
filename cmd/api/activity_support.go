package main

import (
	"log"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/taskmaster/internal/activity"
	"github.com/yourusername/taskmaster/internal/config"
)

// setupActivity は Redis/Asynq を使うアクティビティ履歴を初期化します。
// QUEUE_REDIS_URL が空の場合は nil を返し、機能を無効にします。
func setupActivity(cfg *config.Config) (*activity.Manager, error) {
	if cfg.QueueRedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	store := activity.NewStore(redisClient, cfg.ActivityTTL(), cfg.ActivityMaxEntries)
	manager, err := activity.NewManager(cfg, store, log.Default())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	// Shutdown で Redis クライアントも閉じられます。
	return manager, nil
}
