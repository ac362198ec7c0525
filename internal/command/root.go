// Package command は運用向け CLI（usersctl）のコマンドを提供します。
//
// 管理者フラグの付与はこの CLI からのみ行い、Web アプリケーションには昇格の経路を持たせません。
package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/logging"
	"github.com/yourusername/gatehouse/internal/users"
)

// RootCommand はサブコマンドを登録したルートコマンドを返します。
func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "usersctl [command]",
		Short:        "Out-of-band user administration",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	cmd.AddCommand(
		createCommand(),
		adminCommand("promote", "Grant the admin flag to a user", true),
		adminCommand("demote", "Revoke the admin flag from a user", false),
	)
	return cmd
}

// withStore は設定を読み込み、ストアを開いて fn を実行します。
func withStore(ctx context.Context, fn func(cfg *config.Config, logger *slog.Logger, store users.Store) error) (runErr error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel)

	store, err := users.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}()
	return fn(cfg, logger, store)
}
