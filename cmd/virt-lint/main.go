// Package main provides the virt-lint command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/virtlint/virtlint/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	if err := cli.Execute(ctx, cli.NewRootCmd()); err != nil {
		return 1
	}
	return 0
}
