package users

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx の database/sql ドライバー登録
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

const pgUniqueViolation = "23505"

// dialect は SQL 方言ごとの差分をまとめたものです。
type dialect struct {
	name          string
	goose         goose.Dialect
	migrationsDir string

	insertUser    string
	selectByName  string
	updateIsAdmin string

	isUniqueViolation func(error) bool
}

var sqliteDialect = dialect{
	name:          "sqlite",
	goose:         goose.DialectSQLite3,
	migrationsDir: "migrations/sqlite",
	insertUser: `INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES (?, ?, 0, ?)
		RETURNING id`,
	selectByName: `SELECT id, username, password_hash, is_admin, created_at
		FROM users WHERE username = ?`,
	updateIsAdmin: `UPDATE users SET is_admin = ? WHERE username = ?`,
	isUniqueViolation: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
}

var postgresDialect = dialect{
	name:          "postgres",
	goose:         goose.DialectPostgres,
	migrationsDir: "migrations/postgres",
	insertUser: `INSERT INTO users (username, password_hash, is_admin, created_at)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id`,
	selectByName: `SELECT id, username, password_hash, is_admin, created_at
		FROM users WHERE username = $1`,
	updateIsAdmin: `UPDATE users SET is_admin = $1 WHERE username = $2`,
	isUniqueViolation: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
	},
}

// SQLStore は database/sql 経由で SQLite / PostgreSQL に保存するストアです。
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewPostgresStore は接続済みの *sql.DB から PostgreSQL ストアを作成します。
// マイグレーションは実行しません。
func NewPostgresStore(db *sql.DB) *SQLStore {
	return newSQLStore(db, postgresDialect)
}

// OpenSQLite は dbPath の SQLite データベースを開き、マイグレーションを適用します。
// ":memory:" を指定するとインメモリで動作します。
func OpenSQLite(ctx context.Context, dbPath string, logger *slog.Logger) (*SQLStore, error) {
	if dbPath != ":memory:" {
		if _, err := os.Stat(dbPath); err != nil {
			const userOnlyDirPerms = 0o700
			if err = os.MkdirAll(filepath.Dir(dbPath), userOnlyDirPerms); err != nil {
				return nil, fmt.Errorf("failed to create db parent directory: %w", err)
			}
		}
	}

	dsn := dbPath
	if strings.ContainsRune(dsn, '?') {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create DB handler: %w", err)
	}
	// 単一コネクションにすることで :memory: でも同じデータベースを共有する
	handle.SetMaxOpenConns(1)

	return openSQL(ctx, handle, sqliteDialect, logger)
}

// OpenPostgres は pgx ドライバーで PostgreSQL に接続し、マイグレーションを適用します。
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	handle, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	handle.SetMaxOpenConns(20)
	handle.SetConnMaxLifetime(time.Hour)

	return openSQL(ctx, handle, postgresDialect, logger)
}

func openSQL(ctx context.Context, handle *sql.DB, d dialect, logger *slog.Logger) (*SQLStore, error) {
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	if err := migrate(ctx, handle, d, logger); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return newSQLStore(handle, d), nil
}

func migrate(ctx context.Context, handle *sql.DB, d dialect, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, d.migrationsDir)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(d.goose, handle, fsys)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		logger.DebugContext(ctx, "applied migration",
			slog.String("dialect", d.name),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}

// Create は Repository を満たします。
func (s *SQLStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	err := s.db.QueryRowContext(ctx, s.dialect.insertUser, username, passwordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// FindByUsername は Repository を満たします。
func (s *SQLStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, s.dialect.selectByName, username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// SetAdmin は AdminStore を満たします。
func (s *SQLStore) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, s.dialect.updateIsAdmin, isAdmin, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close はコネクションを閉じます。
func (s *SQLStore) Close() error {
	return s.db.Close()
}
