package auth

import "errors"

var (
	// ErrCredentialsRequired はユーザー名またはパスワードが空の場合に返されます。
	ErrCredentialsRequired = errors.New("username and password required")
	// ErrUsernameTooLong はユーザー名が上限を超えた場合に返されます。
	ErrUsernameTooLong = errors.New("username too long")
	// ErrPasswordTooLong は bcrypt の入力上限を超えた場合に返されます。
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUsernameTaken は同名のユーザーが既に存在する場合に返されます。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials はユーザーが存在しない場合とパスワード不一致の両方で返されます。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrHashing はハッシュ生成の内部エラーです。
	ErrHashing = errors.New("password hashing failed")
)
