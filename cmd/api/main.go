package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/comic-spoiler/spoiler-detector/internal/config"
	"github.com/comic-spoiler/spoiler-detector/internal/container"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Models, database and sessions are all connected before we listen
	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	if err := transport.Serve(ctx, cfg, c.Handler()); err != nil {
		logger.WithError(err).Error("Server stopped with error")
	}

	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Shutdown finished with errors")
	}
}
