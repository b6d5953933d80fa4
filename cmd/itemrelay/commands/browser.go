package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sourceLimit int

func init() {
	sourceCmd.Flags().IntVarP(&sourceLimit, "limit", "n", 10, "number of candidates")
	cookiesCmd.AddCommand(cookiesExportCmd)
	rootCmd.AddCommand(cookiesCmd, sourceCmd)
}

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Manages the crawler's login session.",
}

var cookiesExportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Writes the browser's cookies to a file. Point browser.remote_url at a Chrome you logged in with.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, closeAll, err := startCrawler(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		n, err := c.ExportCookies(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("exported %d cookies to %s\n", n, args[0])
		return nil
	},
}

var sourceCmd = &cobra.Command{
	Use:   "source <keyword>",
	Short: "Searches the vendor for a Korean keyword and lists the best-selling products.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, closeAll, err := startCrawler(cmd)
		if err != nil {
			return err
		}
		defer closeAll()

		cands, err := r.Source(cmd.Context(), args[0], sourceLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"Sales", "Title", "Shop", "URL"})
		for _, c := range cands {
			t.AppendRow(table.Row{c.Sales, c.Title, c.Shop, c.URL})
		}
		t.Render()
		return nil
	},
}
