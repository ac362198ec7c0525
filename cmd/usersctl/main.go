// Package main は運用向けのユーザー管理 CLI です。
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/yourusername/gatehouse/internal/command"
)

func main() { os.Exit(run()) }

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := command.RootCommand().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
