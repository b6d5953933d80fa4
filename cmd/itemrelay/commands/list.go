package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	listStatus  string
	listPage    int
	listPerPage int
	visitsLimit int
)

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (captured, processed, failed, uploaded...)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "page size")
	visitsCmd.Flags().IntVarP(&visitsLimit, "limit", "n", 20, "number of visits")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(visitsCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists products with their status and listing summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		page, err := r.List(cmd.Context(), listStatus, listPage, listPerPage)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"Item", "Status", "Name", "Price", "Product No", "Updated", "Error"})
		for _, v := range page.Items {
			name, price := "", ""
			if v.Summary != nil {
				name, price = v.Summary.ProductName, v.Summary.Price
			}
			t.AppendRow(table.Row{v.ItemID, v.Status, name, price, v.ChannelProductNo, v.UpdatedAt.Format("2006-01-02 15:04"), v.Error})
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("page %d, %d total", page.Page, page.Total)})
		t.Render()
		return nil
	},
}

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Shows the latest page visits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		visits, err := r.Visits(cmd.Context(), visitsLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"When", "Outcome", "Attempts", "Missing", "URL", "Error"})
		for _, v := range visits {
			t.AppendRow(table.Row{formatMillis(v.CreatedAt), v.Outcome, v.Attempts, fmt.Sprint(v.Missing), v.URL, v.Error})
		}
		t.Render()
		return nil
	},
}
