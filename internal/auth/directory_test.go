package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/yourusername/taskmaster/internal/storage"
)

func newTestDirectory(t *testing.T) (*Directory, *TokenService) {
	t.Helper()
	store, err := storage.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	tokens := newTestTokenService(t, time.Hour, time.Now())
	return NewDirectory(store, tokens, log.New(io.Discard, "", 0)), tokens
}

func TestRegisterThenLogin(t *testing.T) {
	dir, tokens := newTestDirectory(t)
	ctx := context.Background()

	user, err := dir.Register(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %#v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("Register must not return the password hash")
	}

	token, err := dir.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	subject, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if subject != "alice@example.com" {
		t.Fatalf("unexpected subject: %s", subject)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()

	if _, err := dir.Register(ctx, "alice@example.com", "one"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := dir.Register(ctx, "alice@example.com", "two"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

type racingStore struct {
	UserStore
}

// UserByEmail は存在確認をすり抜けた同時登録を再現します。
func (racingStore) UserByEmail(context.Context, string) (*storage.User, error) {
	return nil, nil
}

func TestRegisterMapsUniqueViolation(t *testing.T) {
	dir, tokens := newTestDirectory(t)
	ctx := context.Background()
	if _, err := dir.Register(ctx, "alice@example.com", "one"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	racing := NewDirectory(racingStore{UserStore: dir.users}, tokens, log.New(io.Discard, "", 0))
	if _, err := racing.Register(ctx, "alice@example.com", "two"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists from unique constraint, got %v", err)
	}
}

func TestRegisterPasswordTooLong(t *testing.T) {
	dir, _ := newTestDirectory(t)
	_, err := dir.Register(context.Background(), "alice@example.com", strings.Repeat("x", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	dir, _ := newTestDirectory(t)
	ctx := context.Background()
	if _, err := dir.Register(ctx, "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := map[string][2]string{
		"unknown user":   {"bob@example.com", "s3cret"},
		"wrong password": {"alice@example.com", "wrong"},
		"over-long":      {"alice@example.com", strings.Repeat("x", 100)},
		"email is exact": {"Alice@example.com", "s3cret"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := dir.Login(ctx, creds[0], creds[1]); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}
