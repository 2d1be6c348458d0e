package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/marvin-labs/memoria/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, os.Args); err != nil {
		os.Exit(err.Code)
	}
}
