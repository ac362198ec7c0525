package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CSRFCookieName  = "gh_csrf"
	CSRFFormField   = "csrf_token"
	contextCSRFKey  = "auth.csrf"
	csrfTokenLength = 64
	csrfNotice      = "Invalid or missing form token."
)

// CSRF はダブルサブミット方式で POST フォームを検証します。
// トークンはセッションとは別のクッキーに置くため、未ログインのフォーム（ログイン・登録）も保護できます。
type CSRF struct {
	secure bool
}

// NewCSRF は CSRF を作成します。secure はクッキーの Secure 属性です。
func NewCSRF(secure bool) *CSRF {
	return &CSRF{secure: secure}
}

// Protect はトークンの発行と、安全でないメソッドでの照合を行うミドルウェアを返します。
func (p *CSRF) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(CSRFCookieName)
		if len(token) != csrfTokenLength {
			token = ""
		}

		if !isSafeMethod(c.Request.Method) {
			received := c.PostForm(CSRFFormField)
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(received)) != 1 {
				c.String(http.StatusForbidden, csrfNotice)
				c.Abort()
				return
			}
		}

		if token == "" {
			var err error
			if token, err = generateToken(); err != nil {
				_ = c.Error(err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   p.secure,
				SameSite: http.SameSiteStrictMode,
			})
		}

		c.Set(contextCSRFKey, token)
		c.Next()
	}
}

// CSRFToken はフォームに埋め込むトークンを返します。Protect を通っていなければ空文字です。
func CSRFToken(c *gin.Context) string {
	return c.GetString(contextCSRFKey)
}

func generateToken() (string, error) {
	buf := make([]byte, csrfTokenLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
