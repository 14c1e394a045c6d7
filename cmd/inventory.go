package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cmms.GO/app"
	"cmms.GO/service/inventory"
)

var (
	importFile      string
	importOrg       uint
	importBatch     int
	importStoreroom string
)

var importCmd = &cobra.Command{
	Use:   "inventory:import",
	Short: "Import parts and stock settings from CSV",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		if importOrg == 0 {
			return fmt.Errorf("--org is required")
		}
		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := a.Inventory.ImportParts(c.Context(), importOrg, f, inventory.ImportOptions{
			BatchSize: importBatch,
			Storeroom: importStoreroom,
		})
		if err != nil {
			return err
		}
		out := c.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  [warn] %s\n", w)
		}
		fmt.Fprintf(out, `
=== Import Report ===
CSV rows:       %d
Created:        %d
Updated:        %d
Skipped:        %d
Stock rows:     %d
Opening stock:  %d
Total time:     %s
`, res.TotalRows, res.Created, res.Updated, res.Skipped, res.StockRows, res.Opening, res.TotalTime)
		return nil
	}),
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file path (required)")
	importCmd.Flags().UintVar(&importOrg, "org", 0, "organization id (required)")
	importCmd.Flags().IntVarP(&importBatch, "batch", "b", 500, "insert batch size")
	importCmd.Flags().StringVar(&importStoreroom, "storeroom", "", "storeroom code for rows without one (default storeroom when empty)")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
