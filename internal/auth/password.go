package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes は bcrypt が扱えるパスワードの最大バイト長（UTF-8）です。
const MaxPasswordBytes = 72

// ErrPasswordTooLong はパスワードが MaxPasswordBytes を超えた場合のエラーです。
var ErrPasswordTooLong = errors.New("password too long: must be at most 72 bytes when UTF-8 encoded")

// hashCost は bcrypt のコスト係数です。テストでは bcrypt.MinCost に下げます。
var hashCost = bcrypt.DefaultCost

// HashPassword はパスワードをソルト付きでハッシュ化します。
// 72バイトを超えるパスワードは切り詰めずに ErrPasswordTooLong を返します。
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword はパスワードがハッシュと一致するかを返します。
// 長すぎるパスワードや壊れたハッシュはエラーにせず false を返します。
func VerifyPassword(password, hash string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
