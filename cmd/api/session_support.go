package main

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/session"
)

// setupSessionStore は SESSION_STORE に応じたセッションストアを作成します。
// redis の場合はクライアントも返すので、終了時に Close してください。
func setupSessionStore(cfg *config.Config, manager *auth.SessionManager) (sessions.Store, *redis.Client, error) {
	secret := []byte(cfg.SessionSecret)

	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		opt, err := redis.ParseURL(cfg.SessionRedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opt)
		store := session.NewRedisStore(redisClient, secret)
		store.Options(manager.CookieOptions())
		return store, redisClient, nil
	default:
		store := cookie.NewStore(secret)
		store.Options(manager.CookieOptions())
		return store, nil, nil
	}
}
