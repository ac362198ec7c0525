package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	LoginPath       = "/login"
	forbiddenNotice = "Access denied. Admins only."
)

// Guard はポリシーを Gin ミドルウェアとして適用します。セッションは読み取りのみです。
type Guard struct {
	sessions  *SessionManager
	loginPath string
}

// NewGuard はガードを作成します。
func NewGuard(sessions *SessionManager) *Guard {
	return &Guard{sessions: sessions, loginPath: LoginPath}
}

// RequireLogin はログイン済みのリクエストのみ通すミドルウェアを返します。
func (g *Guard) RequireLogin() gin.HandlerFunc {
	return g.enforce(RequireAuthenticated)
}

// RequireAdmin は管理者のリクエストのみ通すミドルウェアを返します。
func (g *Guard) RequireAdmin() gin.HandlerFunc {
	return g.enforce(RequireAdmin)
}

func (g *Guard) enforce(policy Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := g.sessions.Current(sessions.Default(c))
		switch policy(id) {
		case Allow:
			c.Set(ContextIdentityKey, id)
			c.Next()
		case RedirectToLogin:
			c.Redirect(http.StatusFound, g.loginPath)
			c.Abort()
		default:
			c.String(http.StatusForbidden, forbiddenNotice)
			c.Abort()
		}
	}
}

// IdentityFrom はガードが gin.Context に保存した Identity を返します。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
