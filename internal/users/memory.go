package users

import (
	"context"
	"sync"
	"time"
)

// MemoryStore はプロセス内のマップに保存するストアです（開発・テスト用）。
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]User
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// Create は Repository を満たします。確認と追加は同じロック内で行います。
func (s *MemoryStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, ErrDuplicateUsername
	}
	s.nextID++
	user := User{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = user
	return &user, nil
}

// FindByUsername は Repository を満たします。
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// SetAdmin は AdminStore を満たします。
func (s *MemoryStore) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return ErrNotFound
	}
	user.IsAdmin = isAdmin
	s.users[username] = user
	return nil
}

// Close は何もしません。
func (s *MemoryStore) Close() error {
	return nil
}

// Len は保存済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
