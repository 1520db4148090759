// Package storage はユーザーとタスクの永続化レイヤーを提供します。
//
// DATABASE_URL のスキームに応じて SQLite（ローカル開発・テスト用）と
// PostgreSQL（本番用）のどちらかの実装を返します。
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicate は一意制約違反（メールアドレスの重複）を表します。
var ErrDuplicate = errors.New("storage: duplicate key")

// ErrUnknownOwner はタスクの所有者に対応するユーザーが存在しないことを表します（外部キー違反）。
var ErrUnknownOwner = errors.New("storage: unknown owner")

// User は登録済みユーザーです。
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Task はユーザーが所有するタスクです。
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserEmail   string `json:"user_email"`
}

// TaskFilter は一覧・件数取得の絞り込み条件です。
type TaskFilter struct {
	Owner string // 所有者のメールアドレス（必須）
	Query string // タイトルの部分一致（大文字小文字を区別しない）。空なら絞り込まない
}

// Interface はユーザーとタスクの永続化に関する契約です。
// 見つからない場合の取得系メソッドは nil, nil を返します。
type Interface interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)

	CreateTask(ctx context.Context, task Task) (*Task, error)
	TaskByID(ctx context.Context, id int64) (*Task, error)
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)
	ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error)
	DeleteTask(ctx context.Context, id int64) error

	Close() error
}

// Open は DATABASE_URL に対応するストレージを開き、スキーマを適用します。
func Open(ctx context.Context, databaseURL string) (Interface, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		s, err := OpenSQLite(ctx, sqlitePath(databaseURL))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		s, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme")
	}
}

// sqlitePath は sqlite:///./app.db 形式のURLからファイルパスを取り出します。
// sqlite:///./app.db は ./app.db、sqlite:////var/app.db は /var/app.db になります。
func sqlitePath(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, "sqlite://")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ":memory:"
	}
	return path
}

// likePattern は LIKE 用の部分一致パターンを作ります。ワイルドカードはエスケープします。
func likePattern(query string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(query)) + "%"
}
