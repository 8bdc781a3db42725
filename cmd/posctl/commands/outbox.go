package commands

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/grocerypos/pos_backend/workflow"
	"github.com/spf13/cobra"
)

var dispatchOnce bool

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and dispatch sale events",
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Count outbox messages per publish status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		counts, err := models.OutboxCounts(context.Background())
		if err != nil {
			return err
		}
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %d\n", s, counts[s])
		}
		return nil
	},
}

var outboxDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Publish pending sale events to Pub/Sub",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := connect(); err != nil {
			return err
		}
		defer config.ClosePubSub()

		d := workflow.NewOutboxDispatcher(config.GetDB(), config.GetLogger())
		if dispatchOnce {
			sent := d.DispatchOnce(context.Background())
			fmt.Fprintf(cmd.OutOrStdout(), "published %d message(s)\n", sent)
			return nil
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		d.Run(ctx)
		return nil
	},
}

func init() {
	outboxDispatchCmd.Flags().BoolVar(&dispatchOnce, "once", false, "Dispatch a single batch and exit")
	outboxCmd.AddCommand(outboxStatusCmd, outboxDispatchCmd)
	rootCmd.AddCommand(outboxCmd)
}
