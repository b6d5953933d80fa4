package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var categoriesLimit int

func init() {
	categoriesSearchCmd.Flags().IntVarP(&categoriesLimit, "limit", "n", 15, "maximum candidates")
	categoriesCmd.AddCommand(categoriesImportCmd, categoriesSearchCmd)
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manages the destination category index.",
}

var categoriesImportCmd = &cobra.Command{
	Use:   "import <categories.json>",
	Short: "Loads the commerce API category dump into the index.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		n, err := r.ImportCategories(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d categories\n", n)
		return nil
	},
}

var categoriesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Shows the category candidates offered for a product name.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		cands, err := r.SearchCategories(cmd.Context(), args[0], categoriesLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"ID", "Name", "Path"})
		for _, c := range cands {
			t.AppendRow(table.Row{c.ID, c.Name, c.Path})
		}
		t.Render()
		return nil
	},
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
