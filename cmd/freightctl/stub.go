package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/freight-storefront/internal/stubbackend"
)

func (c *cli) stubServerCommand() *cobra.Command {
	var addr, secret string

	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Run an in-memory freight backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sugar := c.logger.Sugar()

			h := stubbackend.NewHandler(stubbackend.New(secret), c.logger)
			server := &http.Server{
				Addr:              addr,
				Handler:           h.SetupRouter(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				sugar.Infow("starting stub backend", "addr", addr)
				fmt.Fprintf(cmd.OutOrStdout(), "stub backend listening on %s\n", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			})

			// Graceful shutdown по сигналу или ошибке сервера
			g.Go(func() error {
				<-ctx.Done()
				sugar.Info("shutting down stub backend...")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown error: %w", err)
				}
				sugar.Info("stub backend stopped gracefully")
				return nil
			})

			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "freight-stub-secret", "JWT signing secret")
	return cmd
}
