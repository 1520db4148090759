package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLite は modernc.org/sqlite を使った Interface の実装です。
type SQLite struct {
	db *sql.DB
}

// OpenSQLite は SQLite データベースを開き、スキーマを適用します。
// path に ":memory:" を渡すとインメモリDBになります。
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite は書き込みが直列化されるため接続は1本に絞る（:memory: は接続ごとに別DBになる）
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// Close はデータベース接続を閉じます。
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser はユーザーを作成します。メールアドレスが重複している場合は ErrDuplicate を返します。
func (s *SQLite) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Email: email, PasswordHash: passwordHash}, nil
}

// UserByEmail はメールアドレスでユーザーを取得します。
func (s *SQLite) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateTask はタスクを作成し、採番済みのタスクを返します。
func (s *SQLite) CreateTask(ctx context.Context, task Task) (*Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, user_email) VALUES (?, ?, ?)`,
		task.Title, task.Description, task.UserEmail,
	)
	if err != nil {
		if isSQLiteForeignKeyViolation(err) {
			return nil, ErrUnknownOwner
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	task.ID = id
	return &task, nil
}

// TaskByID はIDでタスクを取得します。
func (s *SQLite) TaskByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, user_email FROM tasks WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.UserEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// CountTasks は条件に一致するタスク数を返します。
func (s *SQLite) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	where, args := sqliteWhere(filter)
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total)
	return total, err
}

// ListTasks は条件に一致するタスクをID順に返します。limit が0以下なら全件です。
func (s *SQLite) ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error) {
	where, args := sqliteWhere(filter)
	query := `SELECT id, title, description, user_email FROM tasks WHERE ` + where + ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.UserEmail); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// DeleteTask はIDでタスクを削除します。
func (s *SQLite) DeleteTask(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	return err
}

func sqliteWhere(filter TaskFilter) (string, []any) {
	where := `user_email = ?`
	args := []any{filter.Owner}
	if filter.Query != "" {
		where += ` AND lower(title) LIKE ? ESCAPE '\'`
		args = append(args, likePattern(filter.Query))
	}
	return where, args
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE")
}

func isSQLiteForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "FOREIGN KEY")
}
