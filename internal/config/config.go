// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretKey はローカル開発用の署名鍵です。release モードでは使用できません。
const DefaultSecretKey = "dev-secret-change-me"

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// トークン設定
	SecretKey                string  // トークン署名用の秘密鍵
	Algorithm                string  // 署名アルゴリズム (HS256, HS384, HS512)
	AccessTokenExpireMinutes float64 // トークンの有効期限（分）。発行のたびに読み直される

	// データベース設定
	DatabaseURL string // sqlite:///path または postgres://...

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// アクティビティ設定
	QueueRedisURL         string // Asynq/Redis 接続URL（空なら無効）
	ActivityExpireMinutes int    // アクティビティ履歴の保持期間（分）
	ActivityMaxEntries    int    // ユーザーごとに保持する件数
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// トークン設定
		SecretKey:                getEnv("SECRET_KEY", DefaultSecretKey),
		Algorithm:                getEnv("ALGORITHM", "HS256"),
		AccessTokenExpireMinutes: getEnvAsFloat("ACCESS_TOKEN_EXPIRE_MINUTES", 60),

		// データベース設定
		DatabaseURL: getEnv("DATABASE_URL", "sqlite:///./taskmaster.db"),

		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// アクティビティ設定
		QueueRedisURL:         getEnv("QUEUE_REDIS_URL", ""),
		ActivityExpireMinutes: getEnvAsInt("ACTIVITY_EXPIRE_MINUTES", 24*60),
		ActivityMaxEntries:    getEnvAsInt("ACTIVITY_MAX_ENTRIES", 100),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("ALGORITHM must be one of HS256, HS384, HS512: got %q", c.Algorithm)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// 本番環境では開発用の署名鍵を拒否する
	if c.GinMode == "release" && c.SecretKey == DefaultSecretKey {
		return fmt.Errorf("SECRET_KEY must be overridden in release mode")
	}

	return nil
}

// TokenExpiry は現在の設定値からトークンの有効期間を返します。
// 呼び出しのたびに AccessTokenExpireMinutes を読むため、実行時の変更が次回の発行から反映されます。
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes * float64(time.Minute))
}

// ActivityTTL はアクティビティ履歴の保持期間を返します。
func (c *Config) ActivityTTL() time.Duration {
	minutes := c.ActivityExpireMinutes
	if minutes <= 0 {
		minutes = 24 * 60
	}
	return time.Duration(minutes) * time.Minute
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します。
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
