package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// 画面に表示するエラーメッセージ
const (
	msgCredentialsRequired = "Username and password required."
	msgUsernameTaken       = "Username already taken."
	msgUsernameTooLong     = "Username must be at most 64 characters."
	msgPasswordTooLong     = "Password must be at most 72 bytes."
	msgInvalidCredentials  = "Invalid username or password."
	msgSomethingWentWrong  = "Something went wrong."
)

type credentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// Handler は登録・ログイン・ログアウトと各画面のハンドラーをまとめたものです。
type Handler struct {
	service  *Service
	sessions *SessionManager
	csrf     *CSRF
	logger   *slog.Logger
}

// NewHandler はハンドラーを作成します。
func NewHandler(service *Service, sessions *SessionManager, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		csrf:     NewCSRF(sessions.CookieOptions().Secure),
		logger:   logger,
	}
}

// Mount はルーティングを登録します。以降に登録されるルートには CSRF 検証がかかります。
func (h *Handler) Mount(router gin.IRouter, guard *Guard) {
	router.Use(h.csrf.Protect())

	router.GET("/", h.Index)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", h.Register)
	router.GET(LoginPath, h.LoginForm)
	router.POST(LoginPath, h.Login)
	router.POST("/logout", h.Logout)

	router.GET("/member", guard.RequireLogin(), h.Member)
	router.GET("/admin", guard.RequireAdmin(), h.Admin)
}

// Index は GET / のハンドラーです。
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", h.view(c, nil))
}

// RegisterForm は GET /register のハンドラーです。
func (h *Handler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.tmpl", h.view(c, gin.H{"error": nil}))
}

// Register は POST /register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	var form credentialsForm
	_ = c.ShouldBind(&form)

	err := h.service.Register(c.Request.Context(), form.Username, form.Password)
	if err == nil {
		c.Redirect(http.StatusFound, LoginPath)
		return
	}

	var msg string
	switch {
	case errors.Is(err, ErrCredentialsRequired):
		msg = msgCredentialsRequired
	case errors.Is(err, ErrUsernameTaken):
		msg = msgUsernameTaken
	case errors.Is(err, ErrUsernameTooLong):
		msg = msgUsernameTooLong
	case errors.Is(err, ErrPasswordTooLong):
		msg = msgPasswordTooLong
	default:
		h.logger.ErrorContext(c.Request.Context(), "registration failed", slog.Any("error", err))
		msg = msgSomethingWentWrong
	}
	c.HTML(http.StatusOK, "register.tmpl", h.view(c, gin.H{"error": msg}))
}

// LoginForm は GET /login のハンドラーです。
func (h *Handler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, "login.tmpl", h.view(c, gin.H{"error": nil}))
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var form credentialsForm
	_ = c.ShouldBind(&form)

	id, err := h.service.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		msg := msgInvalidCredentials
		if !errors.Is(err, ErrInvalidCredentials) {
			h.logger.ErrorContext(c.Request.Context(), "login failed", slog.Any("error", err))
			msg = msgSomethingWentWrong
		}
		c.HTML(http.StatusOK, "login.tmpl", h.view(c, gin.H{"error": msg}))
		return
	}

	if err := h.sessions.Start(sessions.Default(c), id.Username, id.IsAdmin); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "session save failed", slog.Any("error", err))
		c.HTML(http.StatusOK, "login.tmpl", h.view(c, gin.H{"error": msgSomethingWentWrong}))
		return
	}
	c.Redirect(http.StatusFound, "/member")
}

// Logout は POST /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.End(sessions.Default(c)); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "session destroy failed", slog.Any("error", err))
		c.String(http.StatusInternalServerError, msgSomethingWentWrong)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Member は GET /member のハンドラーです。
func (h *Handler) Member(c *gin.Context) {
	c.HTML(http.StatusOK, "member.tmpl", h.view(c, nil))
}

// Admin は GET /admin のハンドラーです。
func (h *Handler) Admin(c *gin.Context) {
	id, _ := IdentityFrom(c)
	c.HTML(http.StatusOK, "admin.tmpl", h.view(c, gin.H{"username": id.Username}))
}

// view はテンプレートに渡す値に現在のログイン状態を加えます。
func (h *Handler) view(c *gin.Context, data gin.H) gin.H {
	id := h.sessions.Current(sessions.Default(c))
	out := gin.H{
		"currentUser": id.Username,
		"isAdmin":     id.IsAdmin,
		"csrfToken":   CSRFToken(c),
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}
