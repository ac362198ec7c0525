package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength は bcrypt が受け付けるパスワードの最大バイト数です。
const MaxPasswordLength = 72

// PasswordHasher は bcrypt によるソルト付きハッシュを扱います。
// ソルトはハッシュ文字列に埋め込まれ、比較は定数時間で行われます。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher は指定したコストの PasswordHasher を作成します。
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{cost: cost}, nil
}

// Hash は password のハッシュ文字列を返します。同じ入力でも呼び出しごとに異なる値になります。
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return string(hash), nil
}

// Verify は password が hash に一致する場合に true を返します。
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
