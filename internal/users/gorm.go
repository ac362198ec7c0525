package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore は gorm 経由で MySQL に保存するストアです。
type GormStore struct {
	db *gorm.DB
}

// OpenMySQL は MySQL に接続し、users テーブルを AutoMigrate します。
// DSN には parseTime=True を含めてください。
func OpenMySQL(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	if err := db.WithContext(ctx).AutoMigrate(&User{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return NewGormStore(db), nil
}

// NewGormStore は初期化済みの *gorm.DB からストアを作成します。
// 一意制約違反を検出するため TranslateError を有効にしておく必要があります。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Create は Repository を満たします。
func (s *GormStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// FindByUsername は Repository を満たします。
func (s *GormStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

// SetAdmin は AdminStore を満たします。
// MySQL は値が変わらない UPDATE の影響行数を 0 と返すため、先に存在を確認します。
func (s *GormStore) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}
		if err := tx.Model(&user).Update("is_admin", isAdmin).Error; err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

// Close はコネクションを閉じます。
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
