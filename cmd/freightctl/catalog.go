package main

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmeshcher/freight-storefront/internal/app"
	"github.com/mmeshcher/freight-storefront/internal/model"
)

func parsePrice(flag, v string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: %w", flag, v, err)
	}
	return &d, nil
}

func (c *cli) servicesCommand() *cobra.Command {
	var search, minPrice, maxPrice, dateFrom, dateTo string

	cmd := &cobra.Command{
		Use:   "services",
		Short: "List catalog services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch := model.ServiceFiltersPatch{}
			if cmd.Flags().Changed("search") {
				patch.Search = &search
			}
			if cmd.Flags().Changed("date-from") {
				patch.DateFrom = &dateFrom
			}
			if cmd.Flags().Changed("date-to") {
				patch.DateTo = &dateTo
			}
			if minPrice != "" {
				p, err := parsePrice("min-price", minPrice)
				if err != nil {
					return err
				}
				patch.MinPrice = p
			}
			if maxPrice != "" {
				p, err := parsePrice("max-price", maxPrice)
				if err != nil {
					return err
				}
				patch.MaxPrice = p
			}

			return c.withApp(cmd, func(a *app.App) error {
				a.Store.Filters.UpdateFilter(patch)
				listing := a.Catalog.List(cmd.Context(), a.Store.Filters.Snapshot().Filters)
				if listing.Degraded {
					fmt.Fprintln(cmd.ErrOrStderr(), "backend unavailable, showing the built-in catalog")
				}
				printServices(cmd, listing.Services)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&search, "search", "", "substring of name or description")
	f.StringVar(&minPrice, "min-price", "", "minimum price, inclusive")
	f.StringVar(&maxPrice, "max-price", "", "maximum price, inclusive")
	f.StringVar(&dateFrom, "date-from", "", "created on or after, YYYY-MM-DD")
	f.StringVar(&dateTo, "date-to", "", "created on or before, YYYY-MM-DD")
	return cmd
}

func (c *cli) serviceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "service <id>",
		Short: "Show a catalog service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("service id", args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(a *app.App) error {
				s, degraded, err := a.Catalog.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if degraded {
					fmt.Fprintln(cmd.ErrOrStderr(), "backend unavailable, showing the built-in catalog")
				}
				printService(cmd, s)
				return nil
			})
		},
	}
}

func parseID(what, v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, v)
	}
	return id, nil
}
