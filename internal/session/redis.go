// Package session はサーバー側にセッションを保持する gin-contrib/sessions 用のストアを提供します。
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/google/uuid"
	gsessions "github.com/gorilla/sessions"
	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore はセッションの値を Redis に、署名済みのセッション ID をクッキーに保存します。
// ログアウト時は Redis のキーを削除するため、同じクッキーを再送しても復元されません。
type RedisStore struct {
	rdb        *redis.Client
	codecs     []securecookie.Codec
	options    *gsessions.Options
	serializer securecookie.GobEncoder
}

var _ sessions.Store = (*RedisStore)(nil)

// NewRedisStore は Store を作成します。keyPairs はクッキー署名用の鍵です。
func NewRedisStore(rdb *redis.Client, keyPairs ...[]byte) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		codecs: securecookie.CodecsFromPairs(keyPairs...),
		options: &gsessions.Options{
			Path:   "/",
			MaxAge: 86400,
		},
	}
}

// Options はクッキー属性を設定します。
func (s *RedisStore) Options(options sessions.Options) {
	s.options = options.ToGorillaOptions()
}

// Get はリクエスト内でキャッシュされたセッションを返します。
func (s *RedisStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New はクッキーのセッション ID から Redis の値を読み込みます。
// 署名が不正、または Redis に存在しない場合は新しいセッションを返します。
func (s *RedisStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save は値を Redis に保存し、セッション ID をクッキーに書き込みます。
// MaxAge が 0 以下の場合はキーを削除してクッキーを失効させ、ID も破棄します。
// 同じセッションを続けて Save すると新しい ID が払い出されます。
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	ctx := r.Context()
	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.rdb.Del(ctx, sessionKey(session.ID)).Err(); err != nil {
				return err
			}
			session.ID = ""
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	payload, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return err
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.rdb.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, session *gsessions.Session) (bool, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := s.serializer.Deserialize(data, &session.Values); err != nil {
		return false, err
	}
	return true, nil
}

func sessionKey(id string) string {
	return keyPrefix + id
}
