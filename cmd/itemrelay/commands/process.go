package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(uploadCmd)
}

var processCmd = &cobra.Command{
	Use:   "process [item-id...]",
	Short: "Refines captured products into listings. Without ids, every captured product is processed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		if len(args) == 0 {
			st, err := r.ProcessPending(cmd.Context())
			fmt.Printf("processed %d, failed %d\n", st.Processed, st.Failed)
			return err
		}
		for _, id := range args {
			p, err := r.Process(cmd.Context(), id)
			if err != nil {
				logger.Error("itemrelay: process", "item_id", id, "error", err)
				continue
			}
			fmt.Printf("%s\t%s\t%s\n", id, p.Category, p.Name)
		}
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <item-id...>",
	Short: "Registers processed products on SmartStore.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, _, err := openRelay(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		for _, id := range args {
			reg, err := r.Upload(cmd.Context(), id)
			if err != nil {
				logger.Error("itemrelay: upload", "item_id", id, "error", err)
				continue
			}
			fmt.Printf("%s\t%s\n", id, reg.ChannelProduct())
		}
		return nil
	},
}
