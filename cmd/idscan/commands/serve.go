package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-disaster-id-scan/internal/container"
	"go-disaster-id-scan/internal/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the registration desk HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			server := &http.Server{
				Addr:         cfg.ServerAddress(),
				Handler:      c.Handler(),
				ReadTimeout:  cfg.RequestTimeout,
				WriteTimeout: cfg.RequestTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.WithFields(logrus.Fields{
					"address":    cfg.ServerAddress(),
					"timeout":    cfg.RequestTimeout,
					"ocr_engine": cfg.OCREngine,
					"database":   cfg.DatabaseFile(),
				}).Info("Starting HTTP server")

				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for interrupt signal to gracefully shutdown the server
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-serverErr:
				logger.WithError(err).Error("Failed to start server")
				return err
			case <-quit:
			}

			logger.Info("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logger.WithError(err).Error("Server forced to shutdown")
				return err
			}

			logger.Info("Server exited")
			return nil
		},
	}
}
