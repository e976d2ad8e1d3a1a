// Package main is the entry point of the leadharvest binary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leadharvest/leadharvest/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
