package commands

import (
	"context"
	"fmt"

	"github.com/grocerypos/pos_backend/models"
	"github.com/spf13/cobra"
)

var tenantStatusCmd = &cobra.Command{
	Use:   "tenant-status <tenant-id> <active|expired|suspended>",
	Short: "Change a tenant's subscription status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		status := models.SubscriptionStatus(args[1])
		if err := models.SetSubscriptionStatus(context.Background(), args[0], status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tenant %s is now %s\n", args[0], status)
		return nil
	},
}

var unlockUserCmd = &cobra.Command{
	Use:   "unlock-user <email>",
	Short: "Clear the lockout state of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		if err := models.UnlockUser(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tenantStatusCmd, unlockUserCmd)
}
