package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mmeshcher/freight-storefront/internal/app"
	"github.com/mmeshcher/freight-storefront/internal/model"
)

func shipmentFlags(f *pflag.FlagSet, d *model.ShipmentDetails) {
	f.StringVar(&d.FromCity, "from-city", "", "departure city")
	f.StringVar(&d.ToCity, "to-city", "", "destination city")
	f.Float64Var(&d.Weight, "weight", 0, "cargo weight, kg")
	f.Float64Var(&d.Length, "length", 0, "cargo length, m")
	f.Float64Var(&d.Width, "width", 0, "cargo width, m")
	f.Float64Var(&d.Height, "height", 0, "cargo height, m")
}

func (c *cli) ordersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Manage logistic requests",
	}
	cmd.AddCommand(
		c.ordersListCommand(),
		c.ordersShowCommand(),
		c.ordersUpdateCommand(),
		c.ordersFormCommand(),
		c.ordersSubmitCommand(),
		c.ordersRemoveItemCommand(),
		c.ordersSetQtyCommand(),
	)
	return cmd
}

func (c *cli) ordersListCommand() *cobra.Command {
	var status, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := model.OrdersFilter{Status: model.OrderStatus(status), DateFrom: from, DateTo: to}
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Orders.FetchOrders(cmd.Context(), filter); err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrders(cmd, a.Store.Orders.Snapshot().Orders)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "draft, formed, completed, rejected or deleted")
	cmd.Flags().StringVar(&from, "from", "", "created on or after, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "created on or before, YYYY-MM-DD")
	return cmd
}

func (c *cli) ordersShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("order id", args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Orders.FetchOrder(cmd.Context(), id); err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, *a.Store.Orders.Snapshot().CurrentOrder)
				return nil
			})
		},
	}
}

func (c *cli) ordersUpdateCommand() *cobra.Command {
	var d model.ShipmentDetails

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change draft order fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("order id", args[0])
			if err != nil {
				return err
			}

			f := cmd.Flags()
			var p model.OrderPatch
			if f.Changed("from-city") {
				p.FromCity = &d.FromCity
			}
			if f.Changed("to-city") {
				p.ToCity = &d.ToCity
			}
			if f.Changed("weight") {
				p.Weight = &d.Weight
			}
			if f.Changed("length") {
				p.Length = &d.Length
			}
			if f.Changed("width") {
				p.Width = &d.Width
			}
			if f.Changed("height") {
				p.Height = &d.Height
			}

			return c.withApp(cmd, func(a *app.App) error {
				o, err := a.Store.Orders.UpdateOrder(cmd.Context(), id, p)
				if err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, o)
				return nil
			})
		},
	}
	shipmentFlags(cmd.Flags(), &d)
	return cmd
}

func (c *cli) ordersFormCommand() *cobra.Command {
	var d model.ShipmentDetails

	cmd := &cobra.Command{
		Use:   "form <id>",
		Short: "Form a draft order for moderation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("order id", args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				o, err := a.Store.Orders.FormOrder(cmd.Context(), id, d)
				if err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, o)
				return nil
			})
		},
	}
	shipmentFlags(cmd.Flags(), &d)
	return cmd
}

func (c *cli) ordersSubmitCommand() *cobra.Command {
	var d model.ShipmentDetails

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create and form an order in one step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(a *app.App) error {
				o, err := a.Store.Orders.SubmitOrder(cmd.Context(), d)
				if err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, o)
				return nil
			})
		},
	}
	shipmentFlags(cmd.Flags(), &d)
	return cmd
}

func (c *cli) ordersRemoveItemCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-item <order-id> <service-id>",
		Short: "Remove a service from a draft order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID("order id", args[0])
			if err != nil {
				return err
			}
			serviceID, err := parseID("service id", args[1])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Orders.RemoveServiceFromOrder(cmd.Context(), orderID, serviceID); err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, *a.Store.Orders.Snapshot().CurrentOrder)
				return nil
			})
		},
	}
}

func (c *cli) ordersSetQtyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-qty <order-id> <service-id> <quantity>",
		Short: "Change the quantity of a service in a draft order",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseID("order id", args[0])
			if err != nil {
				return err
			}
			serviceID, err := parseID("service id", args[1])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[2])
			}
			return c.withApp(cmd, func(a *app.App) error {
				if err := a.Store.Orders.UpdateServiceInOrder(cmd.Context(), orderID, serviceID, qty); err != nil {
					return failure(err, a.Store.Orders.Snapshot().Error)
				}
				printOrder(cmd, *a.Store.Orders.Snapshot().CurrentOrder)
				return nil
			})
		},
	}
}
