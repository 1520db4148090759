// Package tasks はユーザーごとのタスク管理と所有者チェックを提供します。
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/yourusername/taskmaster/internal/storage"
)

var (
	// ErrTaskNotFound は指定IDのタスクが存在しない場合のエラーです（所有者に関係なく判定）。
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden はタスクは存在するが所有者ではない場合のエラーです。
	ErrForbidden = errors.New("not allowed to delete this task")
	// ErrUnknownOwner は署名の正しいトークンでも、その利用者が登録されていない場合のエラーです。
	ErrUnknownOwner = errors.New("token subject is not a registered user")
)

// defaultLimit は limit が1未満のときに使う件数です。
const defaultLimit = 10

// ValidationError は入力値の検証エラーです。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Repository はタスクの永続化を担います。storage.Interface が実装します。
type Repository interface {
	CreateTask(ctx context.Context, task storage.Task) (*storage.Task, error)
	TaskByID(ctx context.Context, id int64) (*storage.Task, error)
	CountTasks(ctx context.Context, filter storage.TaskFilter) (int, error)
	ListTasks(ctx context.Context, filter storage.TaskFilter, limit, offset int) ([]storage.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Notifier はタスクの作成・削除を通知されます。
type Notifier interface {
	TaskCreated(ctx context.Context, task storage.Task) error
	TaskDeleted(ctx context.Context, task storage.Task) error
}

// Service はタスクの作成・一覧・削除を所有者単位で扱います。
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *log.Logger
}

// NewService は Service を作成します。notifier は nil でも構いません。
func NewService(repo Repository, notifier Notifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Create は owner が所有するタスクを作成します。タイトルは前後の空白を除いて空であってはいけません。
func (s *Service) Create(ctx context.Context, owner, title, description string) (*storage.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title cannot be empty"}
	}

	task, err := s.repo.CreateTask(ctx, storage.Task{
		Title:       title,
		Description: description,
		UserEmail:   owner,
	})
	if errors.Is(err, storage.ErrUnknownOwner) {
		return nil, ErrUnknownOwner
	}
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.TaskCreated(ctx, *task); err != nil {
			s.logger.Printf("failed to notify task creation task=%d: %v", task.ID, err)
		}
	}
	return task, nil
}

// List は owner のタスクを返します。
// Page と Limit の両方が指定された場合のみページング結果（Paged）になります。
func (s *Service) List(ctx context.Context, owner string, q ListQuery) (*ListResult, error) {
	filter := storage.TaskFilter{Owner: owner, Query: q.Query}

	if q.Page == nil || q.Limit == nil {
		items, err := s.repo.ListTasks(ctx, filter, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		return &ListResult{Items: items}, nil
	}

	page, limit := *q.Page, *q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}

	total, err := s.repo.CountTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	// offset が int に収まらないページは必ず範囲外なので問い合わせない。
	items := []storage.Task{}
	if page-1 <= math.MaxInt/limit {
		items, err = s.repo.ListTasks(ctx, filter, limit, (page-1)*limit)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
	}

	return &ListResult{
		Items: items,
		Paged: &Page{
			Items: items,
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pageCount(total, limit),
		},
	}, nil
}

// Delete は owner のタスクを削除します。
// 存在しなければ ErrTaskNotFound、所有者でなければ ErrForbidden を返します。
func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	task, err := s.repo.TaskByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task == nil {
		return ErrTaskNotFound
	}
	if task.UserEmail != owner {
		return ErrForbidden
	}

	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.TaskDeleted(ctx, *task); err != nil {
			s.logger.Printf("failed to notify task deletion task=%d: %v", task.ID, err)
		}
	}
	return nil
}

// pageCount は総ページ数を返します。0件でも1ページとします。
func pageCount(total, limit int) int {
	if total <= 0 {
		return 1
	}
	return (total-1)/limit + 1
}
