package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/freight-storefront/internal/app"
)

func (c *cli) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the draft order",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <service-id>",
		Short: "Add a service to the draft order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("service id", args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				res, err := a.Store.Cart.AddToCart(cmd.Context(), id)
				if err != nil {
					return failure(err, a.Store.Cart.Snapshot().Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "draft #%d, %d item(s)\n", res.RequestID, res.Count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the draft order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Cart.FetchCart(cmd.Context()); err != nil {
					return failure(err, a.Store.Cart.Snapshot().Error)
				}
				st := a.Store.Cart.Snapshot()
				if st.Cart == nil || st.Cart.Order == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "cart is empty")
					return nil
				}
				printOrder(cmd, *st.Cart.Order)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the draft order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Cart.ClearCart(cmd.Context()); err != nil {
					return failure(err, a.Store.Cart.Snapshot().Error)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
				return nil
			})
		},
	})

	return cmd
}
