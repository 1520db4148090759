package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingToken はヘッダーにもクエリにもトークンが無い場合のエラーです。
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken はトークンはあるが検証に失敗した場合のエラーです（期限切れを除く）。
	ErrInvalidToken = errors.New("invalid token")
)

// TokenValidator はトークンを検証して subject を返します。
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Gate はリクエストのトークンを検証し、認証済みユーザーを特定します。
type Gate struct {
	tokens TokenValidator
}

// NewGate は Gate を作成します。
func NewGate(tokens TokenValidator) *Gate {
	return &Gate{tokens: tokens}
}

// ExtractToken は Authorization ヘッダー（Bearer）または token クエリからトークンを取り出します。
// ヘッダーが "Bearer <token>" の2要素で構成されている場合のみヘッダーを優先します。
func ExtractToken(authorization, queryToken string) string {
	if authorization != "" {
		parts := strings.Fields(authorization)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	return queryToken
}

// Authenticate はトークンを検証し、所有者のメールアドレスを返します。
func (g *Gate) Authenticate(authorization, queryToken string) (string, error) {
	token := ExtractToken(authorization, queryToken)
	if token == "" {
		return "", ErrMissingToken
	}

	subject, err := g.tokens.Validate(token)
	switch {
	case err == nil:
		return subject, nil
	case errors.Is(err, ErrTokenExpired):
		return "", ErrTokenExpired
	default:
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
}
