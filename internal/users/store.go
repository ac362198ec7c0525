package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourusername/gatehouse/internal/config"
)

// Open は設定されたドライバーに応じてストアを初期化します。
// SQL 系のストアは起動時にマイグレーションを適用します。
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return NewMemoryStore(), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.DatabaseDSN, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseDSN, logger)
	case config.DriverMySQL:
		return OpenMySQL(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DatabaseDriver)
	}
}
