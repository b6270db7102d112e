package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/miboda/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand(), os.Stderr)
	stop()
	os.Exit(code)
}
