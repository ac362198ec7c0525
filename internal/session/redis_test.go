package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cookieName = "test_session"

func newTestRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, []byte("0123456789abcdef0123456789abcdef"))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})

	router := gin.New()
	router.Use(sessions.Sessions(cookieName, store))
	router.POST("/set", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set("user", c.Query("user"))
		s.Set("admin", true)
		require.NoError(t, s.Save())
		c.Status(http.StatusNoContent)
	})
	router.GET("/get", func(c *gin.Context) {
		s := sessions.Default(c)
		user, _ := s.Get("user").(string)
		admin, _ := s.Get("admin").(bool)
		if admin {
			user += "+admin"
		}
		c.String(http.StatusOK, user)
	})
	router.POST("/rotate", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Clear()
		s.Options(sessions.Options{Path: "/", MaxAge: -1})
		require.NoError(t, s.Save())
		s.Options(sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true})
		s.Set("user", c.Query("user"))
		require.NoError(t, s.Save())
		c.Status(http.StatusNoContent)
	})
	router.POST("/clear", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Clear()
		s.Options(sessions.Options{Path: "/", MaxAge: -1})
		require.NoError(t, s.Save())
		c.Status(http.StatusNoContent)
	})
	return router, mr
}

func do(router *gin.Engine, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// sessionCookie はレスポンスの最後の Set-Cookie を返します。ブラウザと同じく後勝ちです。
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			found = c
		}
	}
	if found == nil {
		t.Fatalf("no %s cookie in response", cookieName)
	}
	return found
}

func TestRedisStoreRoundTrip(t *testing.T) {
	router, mr := newTestRouter(t)

	rec := do(router, http.MethodPost, "/set?user=alice", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], keyPrefix))
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
	assert.NotContains(t, cookie.Value, "alice")

	rec = do(router, http.MethodGet, "/get", cookie)
	assert.Equal(t, "alice+admin", rec.Body.String())
}

func TestRedisStoreClearDeletesKey(t *testing.T) {
	router, mr := newTestRouter(t)

	cookie := sessionCookie(t, do(router, http.MethodPost, "/set?user=alice", nil))
	require.Len(t, mr.Keys(), 1)

	rec := do(router, http.MethodPost, "/clear", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, mr.Keys())
	assert.Less(t, sessionCookie(t, rec).MaxAge, 0)

	// 失効済みのクッキーを再送しても復元されない
	rec = do(router, http.MethodGet, "/get", cookie)
	assert.Equal(t, "", rec.Body.String())
}

func TestRedisStoreRejectsTamperedCookie(t *testing.T) {
	router, _ := newTestRouter(t)

	cookie := sessionCookie(t, do(router, http.MethodPost, "/set?user=alice", nil))
	tampered := &http.Cookie{Name: cookieName, Value: cookie.Value + "x"}

	rec := do(router, http.MethodGet, "/get", tampered)
	assert.Equal(t, "", rec.Body.String())
}

func TestRedisStoreExpiredKey(t *testing.T) {
	router, mr := newTestRouter(t)

	cookie := sessionCookie(t, do(router, http.MethodPost, "/set?user=alice", nil))
	mr.FastForward(2 * time.Hour)

	rec := do(router, http.MethodGet, "/get", cookie)
	assert.Equal(t, "", rec.Body.String())
}

func TestRedisStoreSaveAfterDeleteIssuesNewID(t *testing.T) {
	router, mr := newTestRouter(t)

	old := sessionCookie(t, do(router, http.MethodPost, "/set?user=mallory", nil))
	oldKeys := mr.Keys()
	require.Len(t, oldKeys, 1)

	rec := do(router, http.MethodPost, "/rotate?user=alice", old)
	require.Equal(t, http.StatusNoContent, rec.Code)
	fresh := sessionCookie(t, rec)
	assert.Greater(t, fresh.MaxAge, 0)
	assert.NotEqual(t, old.Value, fresh.Value)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotEqual(t, oldKeys[0], keys[0])

	// 以前のクッキーは新しいセッションを指さない
	assert.Equal(t, "", do(router, http.MethodGet, "/get", old).Body.String())
	assert.Equal(t, "alice", do(router, http.MethodGet, "/get", fresh).Body.String())
}
