package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for static binaries without a system trust store

	"github.com/ericfisherdev/phabdigest/internal/adapter/driving/cli"
	"github.com/ericfisherdev/phabdigest/internal/logging"
)

// main is the entry point for the phabdigest CLI binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// Interrupt cancels the context, which aborts in-flight fetches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, os.Args[1:], logger)
}
