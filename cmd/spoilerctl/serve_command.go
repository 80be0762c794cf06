package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comic-spoiler/spoiler-detector/internal/container"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/transport"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.serverConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := container.NewContainer(runCtx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.WithError(err).Warn("Shutdown finished with errors")
				}
			}()

			return transport.Serve(runCtx, cfg, c.Handler())
		},
	}
}
