package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/catnb/internal/server"
	"github.com/YuminosukeSato/catnb/pkg/log"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve /train, /predict, /test, /validate, /info and /healthz.
The latest saved model, if any, is loaded at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}

			logger := log.GetLoggerWithName("cli")
			restored, err := a.engine.Restore(ctx)
			if err != nil {
				logger.Warn("Could not restore latest model", log.ErrAttr(err)...)
			} else if restored {
				logger.Info("Latest model loaded", log.ModelIDKey, a.engine.ModelID())
			}

			return server.New(a.engine).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}
