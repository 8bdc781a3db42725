package commands

import (
	"fmt"
	"os"

	"github.com/grocerypos/pos_backend/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "posctl",
	Short: "Operations CLI for the GroceryPOS backend",
	Long: `posctl runs operational tasks against the database configured by the DB_* environment
variables (and REDIS_ADDRESS / PUBSUB_* where a command needs them).`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the database once; commands fail fast instead of retrying like the server.
func connect() error {
	if config.GetDB() != nil {
		return nil
	}
	if err := config.ConnectDatabase(); err != nil {
		return fmt.Errorf("connect %s database: %w", config.DBDriver(), err)
	}
	return nil
}
