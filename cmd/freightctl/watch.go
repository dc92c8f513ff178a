package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/freight-storefront/internal/app"
	"github.com/mmeshcher/freight-storefront/internal/badge"
)

func (c *cli) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the cart badge until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				out := cmd.OutOrStdout()
				unsubscribe := badge.Watch(a.Store.Cart, func(b badge.Badge) {
					switch {
					case b.Loading:
						fmt.Fprintf(out, "cart: %d (updating)\n", b.Count)
					case b.Enabled:
						fmt.Fprintf(out, "cart: %d, draft #%d\n", b.Count, b.DraftID)
					default:
						fmt.Fprintln(out, "cart: empty")
					}
				})
				defer unsubscribe()

				g, ctx := errgroup.WithContext(cmd.Context())

				// Опрос счётчика до сигнала остановки
				g.Go(func() error {
					return a.Badge.Run(ctx)
				})

				return g.Wait()
			})
		},
	}
}
