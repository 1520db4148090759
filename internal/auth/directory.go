package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/taskmaster/internal/storage"
)

var (
	// ErrEmailExists は登録済みのメールアドレスで再登録しようとした場合のエラーです。
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials はユーザー不在・パスワード不一致のどちらも表します。
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore はユーザーの永続化を担います。storage.Interface が実装します。
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*storage.User, error)
	UserByEmail(ctx context.Context, email string) (*storage.User, error)
}

// TokenIssuer はログイン成功時にトークンを発行します。
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Directory はユーザー登録とログインを提供します。
type Directory struct {
	users  UserStore
	tokens TokenIssuer
	logger *log.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewDirectory は Directory を作成します。logger が nil の場合は log.Default() を使います。
func NewDirectory(users UserStore, tokens TokenIssuer, logger *log.Logger) *Directory {
	if logger == nil {
		logger = log.Default()
	}
	return &Directory{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Register はユーザーを登録します。
// 事前の存在確認は補助的なもので、同時登録の競合はストレージの一意制約で ErrEmailExists になります。
func (d *Directory) Register(ctx context.Context, email, password string) (*storage.User, error) {
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existing, err := d.users.UserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := d.users.CreateUser(ctx, email, hashed)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	d.logger.Printf("user registered id=%d", user.ID)
	return &storage.User{ID: user.ID, Email: user.Email}, nil
}

// Login は資格情報を検証し、アクセストークンを返します。
// ユーザー不在の場合もダミーハッシュで検証を行い、応答時間の差を小さくします。
func (d *Directory) Login(ctx context.Context, email, password string) (string, error) {
	user, err := d.users.UserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if user == nil {
		VerifyPassword(password, d.timingHash())
		return "", ErrInvalidCredentials
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := d.tokens.Issue(user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (d *Directory) timingHash() string {
	d.dummyOnce.Do(func() {
		hashed, err := HashPassword("taskmaster-timing-equalizer")
		if err != nil {
			d.logger.Printf("failed to prepare timing hash: %v", err)
			return
		}
		d.dummyHash = hashed
	})
	return d.dummyHash
}
