package commands

import (
	"fmt"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update all tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		if err := models.Migrate(config.GetDB()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
