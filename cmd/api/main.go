// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskmaster/internal/activity"
	"github.com/yourusername/taskmaster/internal/auth"
	"github.com/yourusername/taskmaster/internal/config"
	"github.com/yourusername/taskmaster/internal/storage"
	"github.com/yourusername/taskmaster/internal/tasks"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// データベースの接続とスキーマ適用
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// アクティビティ履歴（QUEUE_REDIS_URL が設定されている場合のみ）
	activityManager, err := setupActivity(cfg)
	if err != nil {
		log.Fatalf("Failed to set up activity feed: %v", err)
	}
	if activityManager != nil {
		activityManager.StartWorkers()
		defer func() {
			if err := activityManager.Shutdown(); err != nil {
				log.Printf("Failed to shut down activity feed: %v", err)
			}
		}()
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（Logger + JSON を返す Recovery）
	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(handlePanic), requestID())

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
		requestIDHeader,
	}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	if err := setupRoutes(router, cfg, store, activityManager); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting API server on %s (mode: %s)", srv.Addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "taskmaster-api",
		"version": "0.1.0",
	})
}

// handlePanic は予期しないパニックを内部情報を含まない 500 に変換します。
func handlePanic(c *gin.Context, recovered any) {
	log.Printf("panic recovered: %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":   "INTERNAL_ERROR",
		"detail": "Internal server error",
	})
}

// setupRoutes は認証・タスク・アクティビティのルートを配線します。
// activityManager が nil の場合、タスク操作の通知と /activity は無効です。
func setupRoutes(router *gin.Engine, cfg *config.Config, store storage.Interface, activityManager *activity.Manager) error {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	authManager, err := auth.NewManager(cfg, store, log.Default())
	if err != nil {
		return err
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authManager.Register)
		authRoutes.POST("/login", authManager.Login)
	}

	var notifier tasks.Notifier
	if activityManager != nil {
		notifier = activityManager
		router.GET("/activity", authManager.RequireToken(), activity.FeedHandler(activityManager))
	}

	tasks.RegisterRoutes(router, tasks.NewService(store, notifier, log.Default()), authManager.RequireToken())
	return nil
}
