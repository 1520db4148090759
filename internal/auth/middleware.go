package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserKey は、ハンドラー間で認証済みユーザーのメールアドレスを共有するためのキーです。
const ContextUserKey = "auth.user"

// RequireToken はトークンを検証するミドルウェアを返します。
// 保護されたハンドラーは永続化層に触れる前にこのミドルウェアを通ります。
func (g *Gate) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := g.Authenticate(c.GetHeader("Authorization"), c.Query("token"))
		if err != nil {
			abortUnauthenticated(c, err)
			return
		}
		c.Set(ContextUserKey, subject)
		c.Next()
	}
}

// CurrentUser は RequireToken が設定した認証済みユーザーを返します。
func CurrentUser(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}

func abortUnauthenticated(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingToken):
		// 資格情報そのものが無い場合はリクエスト検証エラーとして扱う
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"code":   "MISSING_TOKEN",
			"detail": "Missing token",
		})
	case errors.Is(err, ErrTokenExpired):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":   "TOKEN_EXPIRED",
			"detail": "Token has expired",
		})
	case errors.Is(err, ErrMissingSubject):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":   "INVALID_TOKEN",
			"detail": "Invalid token: missing user",
		})
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":   "INVALID_TOKEN",
			"detail": "Invalid token",
		})
	}
}
