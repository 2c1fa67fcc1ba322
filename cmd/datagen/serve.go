package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/raaihank/stt-pii-datagen/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve example previews over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			provider, err := loadProvider(a.cfg.Generation.PoolsFile)
			if err != nil {
				return err
			}

			srv, err := server.New(a.cfg, provider, a.log)
			if err != nil {
				return err
			}

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- srv.Start()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				a.log.Info("Shutdown signal received")

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := srv.Stop(ctx); err != nil {
					return fmt.Errorf("failed to shutdown server gracefully: %w", err)
				}
				a.log.Info("Server shutdown complete")
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "listen port (default from config)")
	return cmd
}
