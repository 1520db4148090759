// Package activity はタスク操作のアクティビティ履歴を非同期に記録します。
//
// タスクの作成・削除は Asynq のキューに投入され、ワーカーが Redis のユーザー別リストに保存します。
// 記録の失敗はタスク操作そのものには影響させません。
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/yourusername/taskmaster/internal/config"
	"github.com/yourusername/taskmaster/internal/storage"
)

const (
	taskTypeRecord = "activity:record"
	queueName      = "activity"
)

// EventStore はアクティビティ履歴の保存先です。*Store が実装します。
type EventStore interface {
	Append(ctx context.Context, owner string, event Event) error
	Recent(ctx context.Context, owner string, limit int) ([]Event, error)
}

// Manager はイベントの投入とワーカーの管理を担います。
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	store  EventStore
	logger *log.Logger
	now    func() time.Time
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, store EventStore, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	manager := &Manager{
		client: asynq.NewClient(opt),
		server: server,
		mux:    asynq.NewServeMux(),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	manager.mux.HandleFunc(taskTypeRecord, manager.handleRecordTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。store が io.Closer なら併せて閉じます。
func (m *Manager) Shutdown() error {
	m.server.Shutdown()
	err := m.client.Close()
	if closer, ok := m.store.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// TaskCreated はタスク作成イベントを投入します。
func (m *Manager) TaskCreated(ctx context.Context, task storage.Task) error {
	return m.enqueue(ctx, task.UserEmail, m.newEvent(ActionTaskCreated, task))
}

// TaskDeleted はタスク削除イベントを投入します。
func (m *Manager) TaskDeleted(ctx context.Context, task storage.Task) error {
	return m.enqueue(ctx, task.UserEmail, m.newEvent(ActionTaskDeleted, task))
}

// Recent は owner の最近のイベントを返します。
func (m *Manager) Recent(ctx context.Context, owner string, limit int) ([]Event, error) {
	return m.store.Recent(ctx, owner, limit)
}

func (m *Manager) newEvent(action Action, task storage.Task) Event {
	return Event{
		ID:     uuid.NewString(),
		Owner:  task.UserEmail,
		Action: action,
		TaskID: task.ID,
		Title:  task.Title,
		At:     m.now().UTC(),
	}
}

func (m *Manager) enqueue(ctx context.Context, owner string, event Event) error {
	body, err := encodePayload(owner, event)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskTypeRecord, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(3)); err != nil {
		return fmt.Errorf("enqueue activity: %w", err)
	}
	return nil
}

func encodePayload(owner string, event Event) ([]byte, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	return json.Marshal(taskPayload{Owner: owner, Event: event})
}
