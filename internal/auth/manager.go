// Package auth は認証・認可機能を提供します。
//
// 認証情報の登録と検証（Service）、セッションへの識別情報の保存（SessionManager）、
// 保護されたルートの前段で評価するポリシー（Guard）から構成されます。
package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gatehouse/internal/config"
)

const (
	SessionCookieName    = "gh_session"
	sessionKeyUser       = "auth_user"
	sessionKeyAdmin      = "auth_admin"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
)

// ContextIdentityKey は、ガードを通過したリクエストの Identity を gin.Context で共有するためのキーです。
const ContextIdentityKey = "auth.identity"

// Identity はセッションから読み出したログイン状態のスナップショットです。
// Username が空なら匿名で、その場合 IsAdmin は常に false です。
type Identity struct {
	Username string
	IsAdmin  bool
}

// Authenticated はログイン済みかどうかを返します。
func (i Identity) Authenticated() bool {
	return i.Username != ""
}

// SessionManager はクライアントごとのセッションに識別情報を読み書きします。
// セッションの発行・保存自体は gin-contrib/sessions のストアに委譲します。
type SessionManager struct {
	maxLifetime time.Duration
	idleTimeout time.Duration
	options     sessions.Options
	now         func() time.Time
}

// NewSessionManager はセッションマネージャーを作成します。
func NewSessionManager(cfg *config.Config) *SessionManager {
	return &SessionManager{
		maxLifetime: cfg.SessionMaxLifetime,
		idleTimeout: cfg.SessionIdleTimeout,
		options: sessions.Options{
			Path:     "/",
			MaxAge:   int(cfg.SessionMaxLifetime.Seconds()),
			HttpOnly: true,
			Secure:   cfg.GinMode == gin.ReleaseMode,
			SameSite: http.SameSiteStrictMode,
		},
		now: time.Now,
	}
}

// CookieOptions はセッションストアに設定するクッキー属性を返します。
func (m *SessionManager) CookieOptions() sessions.Options {
	return m.options
}

// Start は既存のセッションを End で破棄してから、username と isAdmin を新しいセッションに保存します。
// サーバー側ストアではログイン前のセッション ID は無効になり、新しい ID が払い出されます。
func (m *SessionManager) Start(session sessions.Session, username string, isAdmin bool) error {
	if err := m.End(session); err != nil {
		return err
	}

	now := m.now()
	session.Options(m.options)
	session.Set(sessionKeyUser, username)
	session.Set(sessionKeyAdmin, isAdmin)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	return session.Save()
}

// Current はセッションの識別情報を返します。セッションを変更しません。
func (m *SessionManager) Current(session sessions.Session) Identity {
	user, ok := session.Get(sessionKeyUser).(string)
	if !ok || user == "" {
		return Identity{}
	}
	isAdmin, _ := session.Get(sessionKeyAdmin).(bool)
	return Identity{Username: user, IsAdmin: isAdmin}
}

// End はセッションの内容をすべて破棄し、クッキーを失効させます。
// 匿名セッションに対して呼び出しても何もしません。
func (m *SessionManager) End(session sessions.Session) error {
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// EnforceExpiry は絶対有効期限と無操作タイムアウトを適用するミドルウェアです。
// 期限切れのセッションは破棄され、以降のガードからは匿名として扱われます。
// 有効なセッションは最終操作時刻を更新するため、ガードが 403 を返すリクエストでも Set-Cookie が付きます。
func (m *SessionManager) EnforceExpiry(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if !m.Current(session).Authenticated() {
			c.Next()
			return
		}

		now := m.now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if m.expired(now, issuedAt, lastActive) {
			if err := m.End(session); err != nil {
				logger.WarnContext(c.Request.Context(), "failed to destroy expired session", slog.Any("error", err))
			}
			c.Next()
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		if err := session.Save(); err != nil {
			logger.WarnContext(c.Request.Context(), "failed to refresh session activity", slog.Any("error", err))
		}
		c.Next()
	}
}

func (m *SessionManager) expired(now, issuedAt, lastActive time.Time) bool {
	if issuedAt.IsZero() || now.Sub(issuedAt) > m.maxLifetime {
		return true
	}
	return lastActive.IsZero() || now.Sub(lastActive) > m.idleTimeout
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
