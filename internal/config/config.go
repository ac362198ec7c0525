// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// セッションストアの種類
const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
)

// データベースドライバーの種類
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

// MinSessionSecretLength はリリースモードで要求する署名鍵の最小バイト数です。
const MinSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // HTTPサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// セッション設定
	SessionSecret      string        // セッション署名用の秘密鍵
	SessionStore       string        // cookie または redis
	SessionRedisURL    string        // redis セッションストアの接続URL
	SessionMaxLifetime time.Duration // ログインからの絶対有効期限
	SessionIdleTimeout time.Duration // 無操作タイムアウト

	// 認証情報ストア設定
	DatabaseDriver string // sqlite, postgres, mysql, memory
	DatabaseDSN    string // 接続文字列（sqlite はファイルパス）

	// パスワードハッシュ設定
	BcryptCost int

	// ログ設定
	LogLevel string

	// 開発モードで SESSION_SECRET を自動生成した場合 true
	GeneratedSecret bool
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// セッション設定
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionStore:       getEnv("SESSION_STORE", SessionStoreCookie),
		SessionRedisURL:    getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),
		SessionMaxLifetime: time.Duration(getEnvAsInt("SESSION_MAX_LIFETIME_MINUTES", 720)) * time.Minute,
		SessionIdleTimeout: time.Duration(getEnvAsInt("SESSION_IDLE_TIMEOUT_MINUTES", 30)) * time.Minute,

		// 認証情報ストア設定
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseDSN:    getEnv("DATABASE_DSN", filepath.Join("data", "app.db")),

		// パスワードハッシュ設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),

		// ログ設定
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 開発時は未設定でも起動できるようにプロセス単位の鍵を生成する
	if config.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		config.SessionSecret = secret
		config.GeneratedSecret = true
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
	switch c.SessionStore {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	switch c.DatabaseDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMySQL:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DatabaseDriver)
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.SessionMaxLifetime <= 0 {
		return fmt.Errorf("SESSION_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT_MINUTES must be positive")
	}

	// 本番環境では署名鍵を必ず外部から与える
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < MinSessionSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", MinSessionSecretLength)
		}
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
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

func randomSecret() (string, error) {
	buf := make([]byte, MinSessionSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
