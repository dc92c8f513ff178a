package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
}

func printUser(cmd *cobra.Command, u *model.User) {
	if u == nil {
		return
	}
	w := newTable(cmd)
	fmt.Fprintf(w, "ID\t%d\n", u.ID)
	fmt.Fprintf(w, "Login\t%s\n", u.Login)
	fmt.Fprintf(w, "Name\t%s\n", u.Name)
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	if u.Phone != "" {
		fmt.Fprintf(w, "Phone\t%s\n", u.Phone)
	}
	fmt.Fprintf(w, "Role\t%s\n", u.Role)
	_ = w.Flush()
}

func printServices(cmd *cobra.Command, services []model.Service) {
	w := newTable(cmd)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tDAYS\tMAX WEIGHT\tCREATED")
	for _, s := range services {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%g\t%s\n",
			s.ID, s.Name, s.Price.StringFixed(2), s.DeliveryDays, s.MaxWeight, s.CreatedAt.Format(model.DateLayout))
	}
	_ = w.Flush()
}

func printService(cmd *cobra.Command, s model.Service) {
	w := newTable(cmd)
	fmt.Fprintf(w, "ID\t%d\n", s.ID)
	fmt.Fprintf(w, "Name\t%s\n", s.Name)
	fmt.Fprintf(w, "Description\t%s\n", s.Description)
	fmt.Fprintf(w, "Price\t%s\n", s.Price.StringFixed(2))
	fmt.Fprintf(w, "Delivery days\t%d\n", s.DeliveryDays)
	fmt.Fprintf(w, "Max weight\t%g\n", s.MaxWeight)
	fmt.Fprintf(w, "Max volume\t%g\n", s.MaxVolume)
	if s.ImageURL != "" {
		fmt.Fprintf(w, "Image\t%s\n", s.ImageURL)
	}
	_ = w.Flush()
}

func printOrders(cmd *cobra.Command, orders []model.Order) {
	w := newTable(cmd)
	fmt.Fprintln(w, "ID\tSTATUS\tROUTE\tITEMS\tTOTAL\tDAYS\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%s\n",
			o.ID, o.Status, route(o), o.ItemCount(), o.TotalCost.StringFixed(2), o.TotalDays, o.CreatedAt.Format(model.DateLayout))
	}
	_ = w.Flush()
}

func route(o model.Order) string {
	if o.FromCity == "" && o.ToCity == "" {
		return "-"
	}
	return o.FromCity + " → " + o.ToCity
}

func printOrder(cmd *cobra.Command, o model.Order) {
	w := newTable(cmd)
	fmt.Fprintf(w, "ID\t%d\n", o.ID)
	fmt.Fprintf(w, "Status\t%s\n", o.Status)
	fmt.Fprintf(w, "Route\t%s\n", route(o))
	fmt.Fprintf(w, "Cargo\t%g kg, %g×%g×%g m\n", o.Weight, o.Length, o.Width, o.Height)
	fmt.Fprintf(w, "Total\t%s\n", o.TotalCost.StringFixed(2))
	fmt.Fprintf(w, "Delivery days\t%d\n", o.TotalDays)
	if o.FormedAt != nil {
		fmt.Fprintf(w, "Formed\t%s\n", o.FormedAt.Format("2006-01-02 15:04"))
	}
	if o.CompletedAt != nil {
		fmt.Fprintf(w, "Completed\t%s\n", o.CompletedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()

	if len(o.Services) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	w = newTable(cmd)
	fmt.Fprintln(w, "SERVICE\tNAME\tQTY\tPRICE")
	for _, li := range o.Services {
		name, price := "-", "-"
		if li.Service != nil {
			name = li.Service.Name
			price = li.Service.Price.StringFixed(2)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", li.ServiceID, name, li.Quantity, price)
	}
	_ = w.Flush()
}
