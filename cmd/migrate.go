package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cmms.GO/app"
	"cmms.GO/model/entity"
)

var migrateCmd = &cobra.Command{
	Use:   "db:migrate",
	Short: "Create or update tables for every entity",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		if err := a.DB.WithContext(c.Context()).AutoMigrate(entity.All()...); err != nil {
			return err
		}
		fmt.Fprintf(c.OutOrStdout(), "migrated %d tables\n", len(entity.All()))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
