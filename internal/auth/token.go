package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired は exp を過ぎたトークンです。
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenMalformed は署名不一致・構造不正・未対応アルゴリズムなど、期限切れ以外の検証失敗です。
	ErrTokenMalformed = errors.New("token is malformed")
	// ErrMissingSubject は sub クレームを含まないトークンです。
	ErrMissingSubject = errors.New("token is missing subject")
)

// ExpirySource はトークンの有効期間を発行のたびに返します。
// *config.Config が実装しており、設定値の変更は次回の発行から反映されます。
type ExpirySource interface {
	TokenExpiry() time.Duration
}

// ExpiryFunc は関数を ExpirySource として扱うためのアダプターです。
type ExpiryFunc func() time.Duration

// TokenExpiry は f() を返します。
func (f ExpiryFunc) TokenExpiry() time.Duration {
	return f()
}

// TokenService は署名付きのアクセストークンを発行・検証します。
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	expiry ExpirySource
	now    func() time.Time
}

// NewTokenService は HMAC 系アルゴリズム用の TokenService を作成します。
func NewTokenService(secret, algorithm string, expiry ExpirySource) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if expiry == nil {
		return nil, errors.New("token expiry source is nil")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %q", algorithm)
	}
	return &TokenService{
		secret: []byte(secret),
		method: method,
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// Issue は subject（メールアドレス）を sub に持つトークンを発行します。
func (s *TokenService) Issue(subject string) (string, error) {
	expiresAt := s.now().Add(s.expiry.TokenExpiry())
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Validate は署名と有効期限を検証し、sub を返します。
// 現在時刻が exp 以上なら ErrTokenExpired、それ以外の失敗は ErrTokenMalformed です。
func (s *TokenService) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}
