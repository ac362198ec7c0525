package auth

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yourusername/gatehouse/internal/users"
)

// Service は認証情報の登録と検証を行います。
type Service struct {
	users     users.Repository
	hasher    *PasswordHasher
	dummyHash string
}

// NewService は Service を作成します。
// 存在しないユーザーでの照合に使うダミーハッシュを同じコストで生成しておきます。
func NewService(repo users.Repository, hasher *PasswordHasher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("user repository is nil")
	}
	if hasher == nil {
		return nil, errors.New("password hasher is nil")
	}
	dummy, err := hasher.Hash("gatehouse-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Service{users: repo, hasher: hasher, dummyHash: dummy}, nil
}

// Register は新しいユーザーを is_admin=false で登録します。
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrCredentialsRequired
	}
	// 上限は文字数で数える（MySQL の VARCHAR(64) と同じ単位）
	if utf8.RuneCountInString(username) > users.MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	// 重複判定はストアの一意制約に任せる
	if _, err := s.users.Create(ctx, username, hash); err != nil {
		if errors.Is(err, users.ErrDuplicateUsername) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Login は認証情報を検証し、成功時にセッションへ保存する Identity を返します。
// ユーザーが存在しない場合とパスワード不一致は同じ ErrInvalidCredentials になります。
func (s *Service) Login(ctx context.Context, username, password string) (Identity, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{Username: user.Username, IsAdmin: user.IsAdmin}, nil
}
