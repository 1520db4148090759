// Package auth は認証・認可機能を提供します。
//
// パスワードのハッシュ化（bcrypt）、署名付きトークンの発行と検証（JWT）、
// リクエストからの認証ユーザー特定、ユーザー登録・ログインを扱います。
package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskmaster/internal/config"
)

// Manager は認証処理の部品をまとめ、HTTPハンドラーとミドルウェアを提供します。
type Manager struct {
	tokens    *TokenService
	gate      *Gate
	directory *Directory
}

// NewManager は設定とユーザーストアから認証マネージャーを作成します。
// トークンの有効期間は cfg から発行のたびに読み直します。
func NewManager(cfg *config.Config, users UserStore, logger *log.Logger) (*Manager, error) {
	tokens, err := NewTokenService(cfg.SecretKey, cfg.Algorithm, cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{
		tokens:    tokens,
		gate:      NewGate(tokens),
		directory: NewDirectory(users, tokens, logger),
	}, nil
}

// Tokens はトークンサービスを返します。
func (m *Manager) Tokens() *TokenService {
	return m.tokens
}

// RequireToken はトークン検証ミドルウェアを返します。
func (m *Manager) RequireToken() gin.HandlerFunc {
	return m.gate.RequireToken()
}

// Password は空文字列も有効な値として扱うため、フィールドの有無だけを確認します。
type registerRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password *string `json:"password"`
}

type loginRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password *string `json:"password"`
}

// Register は /auth/register のハンドラーです。
func (m *Manager) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":   "INVALID_INPUT",
			"detail": "a valid email and a password are required",
		})
		return
	}

	user, err := m.directory.Register(c.Request.Context(), req.Email, *req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

// Login は /auth/login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":   "INVALID_INPUT",
			"detail": "email and password are required",
		})
		return
	}

	token, err := m.directory.Login(c.Request.Context(), req.Email, *req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
