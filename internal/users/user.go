// Package users は認証情報（ユーザー名・パスワードハッシュ・管理者フラグ）の永続化を提供します。
//
// ユーザー名は大文字小文字を区別して完全一致で扱います。正規化は行いません。
package users

import (
	"context"
	"errors"
	"time"
)

// MaxUsernameLength はユーザー名の最大文字数です。
const MaxUsernameLength = 64

var (
	// ErrNotFound は指定したユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUsername は一意制約によって登録が拒否された場合に返されます。
	ErrDuplicateUsername = errors.New("username already exists")
)

// User は認証情報のレコードです。
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"type:varchar(64) COLLATE utf8mb4_bin;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null"`
	IsAdmin      bool      `gorm:"column:is_admin;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

// TableName は gorm が使うテーブル名です。
func (User) TableName() string {
	return "users"
}

// Repository はアプリケーション本体が使う操作です。
type Repository interface {
	// Create は is_admin=false のユーザーを追加します。
	// 重複は一意制約で検出し ErrDuplicateUsername を返します。
	Create(ctx context.Context, username, passwordHash string) (*User, error)
	// FindByUsername は完全一致で検索し、見つからなければ ErrNotFound を返します。
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// AdminStore は運用ツールから管理者フラグを直接操作するための操作です。
// Web アプリケーションからは呼び出しません。
type AdminStore interface {
	SetAdmin(ctx context.Context, username string, isAdmin bool) error
}

// Store はバックエンド実装がまとめて満たすインターフェースです。
type Store interface {
	Repository
	AdminStore
	Close() error
}
