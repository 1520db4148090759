package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL のエラーコード
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id          BIGSERIAL PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		user_email  TEXT NOT NULL REFERENCES users(email)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_user_email ON tasks(user_email)`,
}

// Postgres は pgxpool を使った Interface の実装です。
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres は接続文字列からコネクションプールを作成し、スキーマを適用します。
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Postgres{pool: pool}, nil
}

// Close はコネクションプールを閉じます。
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// CreateUser はユーザーを作成します。メールアドレスが重複している場合は ErrDuplicate を返します。
func (s *Postgres) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	u := User{Email: email, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2) RETURNING id;
	`,
		email,
		passwordHash,
	).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

// UserByEmail はメールアドレスでユーザーを取得します。
func (s *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, password_hash
		FROM users
		WHERE email = $1;
	`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateTask はタスクを作成し、採番済みのタスクを返します。
func (s *Postgres) CreateTask(ctx context.Context, task Task) (*Task, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, user_email)
		VALUES ($1, $2, $3) RETURNING id;
	`,
		task.Title,
		task.Description,
		task.UserEmail,
	).Scan(&task.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrUnknownOwner
		}
		return nil, err
	}
	return &task, nil
}

// TaskByID はIDでタスクを取得します。
func (s *Postgres) TaskByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, description, user_email
		FROM tasks
		WHERE id = $1;
	`,
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.UserEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// CountTasks は条件に一致するタスク数を返します。
func (s *Postgres) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	where, args := postgresWhere(filter)
	var total int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total)
	return total, err
}

// ListTasks は条件に一致するタスクをID順に返します。limit が0以下なら全件です。
func (s *Postgres) ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error) {
	where, args := postgresWhere(filter)
	query := `SELECT id, title, description, user_email FROM tasks WHERE ` + where + ` ORDER BY id`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

	// rows.Err() の確認を忘れないこと
	return tasks, rows.Err()
}

// DeleteTask はIDでタスクを削除します。
func (s *Postgres) DeleteTask(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM tasks
		WHERE id = $1;
	`,
		id,
	)
	return err
}

func postgresWhere(filter TaskFilter) (string, []any) {
	where := `user_email = $1`
	args := []any{filter.Owner}
	if filter.Query != "" {
		where += ` AND title ILIKE $2 ESCAPE '\'`
		args = append(args, likePattern(filter.Query))
	}
	return where, args
}
