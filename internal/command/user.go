package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yourusername/gatehouse/internal/auth"
	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/users"
)

func createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates a non-admin user with the provided username. The password is read\n" +
			"from stdin or through the interactive prompt.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(cfg *config.Config, logger *slog.Logger, store users.Store) error {
				passwd, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				hasher, err := auth.NewPasswordHasher(cfg.BcryptCost)
				if err != nil {
					return err
				}
				service, err := auth.NewService(store, hasher)
				if err != nil {
					return err
				}

				name := args[0]
				if err := service.Register(cmd.Context(), name, passwd); err != nil {
					return err
				}
				logger.InfoContext(cmd.Context(), "created user", slog.String("name", name))
				return nil
			})
		},
	}
}

func adminCommand(use, short string, isAdmin bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(_ *config.Config, logger *slog.Logger, store users.Store) error {
				name := args[0]
				if err := store.SetAdmin(cmd.Context(), name, isAdmin); err != nil {
					if errors.Is(err, users.ErrNotFound) {
						return fmt.Errorf("user %q does not exist", name)
					}
					return err
				}
				logger.InfoContext(cmd.Context(), "updated admin flag",
					slog.String("name", name),
					slog.Bool("admin", isAdmin),
				)
				return nil
			})
		},
	}
}

// readPassword は端末ならエコーなしのプロンプトで、それ以外は 1 行読み取ります。
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if _, err := io.WriteString(prompt, "password: "); err != nil {
			return "", err
		}
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = io.WriteString(prompt, "\n")
		return string(b), err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
