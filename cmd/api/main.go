// Package main はWebサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/logging"
	"github.com/yourusername/gatehouse/internal/users"
	"github.com/yourusername/gatehouse/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)
	if cfg.GeneratedSecret {
		logger.Warn("SESSION_SECRET is not set; using a random secret, sessions will not survive restarts")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 認証情報ストア
	store, err := users.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	service, err := auth.NewService(store, hasher)
	if err != nil {
		return err
	}
	sessionManager := auth.NewSessionManager(cfg)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（Recovery と slog のアクセスログ）
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))
	router.SetHTMLTemplate(web.Templates())

	// セッションストアの設定（クッキー署名鍵は必須）
	sessionStore, redisClient, err := setupSessionStore(cfg, sessionManager)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	router.Use(sessions.Sessions(auth.SessionCookieName, sessionStore))
	router.Use(sessionManager.EnforceExpiry(logger))

	// CORSミドルウェアの設定（クッキー付きのクロスオリジン要求は許可しない）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = false
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	setupRoutes(router, service, sessionManager, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			slog.String("addr", srv.Addr),
			slog.String("mode", cfg.GinMode),
			slog.String("db", cfg.DatabaseDriver),
			slog.String("sessions", cfg.SessionStore),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "gatehouse",
	})
}

// setupRoutes は画面と認証周りの配線を行います。
func setupRoutes(router *gin.Engine, service *auth.Service, sessionManager *auth.SessionManager, logger *slog.Logger) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	handler := auth.NewHandler(service, sessionManager, logger)
	handler.Mount(router, auth.NewGuard(sessionManager))
}
