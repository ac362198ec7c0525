package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gatehouse/internal/users"
)

type failingRepo struct {
	err error
}

func (r *failingRepo) Create(ctx context.Context, username, passwordHash string) (*users.User, error) {
	return nil, r.err
}

func (r *failingRepo) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return nil, r.err
}

func newTestService(t *testing.T) (*Service, *users.MemoryStore) {
	t.Helper()
	store := users.NewMemoryStore()
	svc, err := NewService(store, newTestHasher(t))
	require.NoError(t, err)
	return svc, store
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, newTestHasher(t))
	assert.Error(t, err)
	_, err = NewService(users.NewMemoryStore(), nil)
	assert.Error(t, err)
}

func TestServiceRegister(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bob", "pw123"))

	user, err := store.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "pw123", user.PasswordHash)
	assert.True(t, strings.HasPrefix(user.PasswordHash, "$2"))
}

func TestServiceRegisterDuplicate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bob", "pw123"))
	assert.ErrorIs(t, svc.Register(ctx, "bob", "other"), ErrUsernameTaken)
	assert.Equal(t, 1, store.Len())

	// 先に登録したパスワードが有効なまま
	id, err := svc.Login(ctx, "bob", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "bob", id.Username)
}

func TestServiceRegisterValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"empty username", "", "pw", ErrCredentialsRequired},
		{"empty password", "bob", "", ErrCredentialsRequired},
		{"both empty", "", "", ErrCredentialsRequired},
		{"long username", strings.Repeat("u", users.MaxUsernameLength+1), "pw", ErrUsernameTooLong},
		{"long password", "bob", strings.Repeat("p", MaxPasswordLength+1), ErrPasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.Register(ctx, tt.username, tt.password), tt.want)
		})
	}
	assert.Zero(t, store.Len())
}

func TestServiceRegisterStoreError(t *testing.T) {
	svc, err := NewService(&failingRepo{err: errors.New("disk full")}, newTestHasher(t))
	require.NoError(t, err)

	err = svc.Register(context.Background(), "bob", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
	assert.Contains(t, err.Error(), "disk full")
}

func TestServiceLogin(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bob", "pw123"))
	require.NoError(t, svc.Register(ctx, "root", "toor"))
	require.NoError(t, store.SetAdmin(ctx, "root", true))

	id, err := svc.Login(ctx, "bob", "pw123")
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "bob", IsAdmin: false}, id)

	id, err = svc.Login(ctx, "root", "toor")
	require.NoError(t, err)
	assert.Equal(t, Identity{Username: "root", IsAdmin: true}, id)
}

func TestServiceLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "bob", "pw123"))

	_, unknownErr := svc.Login(ctx, "nobody", "pw123")
	_, wrongErr := svc.Login(ctx, "bob", "wrong")
	_, caseErr := svc.Login(ctx, "BOB", "pw123")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.ErrorIs(t, caseErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestServiceLoginStoreError(t *testing.T) {
	svc, err := NewService(&failingRepo{err: errors.New("connection refused")}, newTestHasher(t))
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "bob", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestServiceRegisterCountsUsernameInCharacters(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// 64 文字だが 192 バイト
	name := strings.Repeat("あ", users.MaxUsernameLength)
	require.NoError(t, svc.Register(ctx, name, "pw"))
	assert.Equal(t, 1, store.Len())

	err := svc.Register(ctx, name+"あ", "pw")
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}
