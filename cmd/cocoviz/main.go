package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/model-collapse/cocoviz/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(os.Stdout, os.Stderr)
	if err := c.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		c.Logger.Fatal(err)
	}
}
