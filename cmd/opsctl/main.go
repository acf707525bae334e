// Package main provides the entry point for the opsctl CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/kafkaops/internal/cli"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date}); err != nil {
		stop()
		os.Exit(1)
	}
}
