package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/vatsal3003/snapnorm/internal/cli"
	_ "github.com/vatsal3003/snapnorm/internal/codec/webp"
	"github.com/vatsal3003/snapnorm/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(afero.NewOsFs()).ExecuteContext(ctx); err != nil {
		logger.Error("snapnorm failed", "error", err)
		stop()
		os.Exit(1)
	}
}
