package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/you/tourism-booking/services/tourism-service/internal/domain"
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Inspect and reconcile payment transactions",
}

var txShowCmd = &cobra.Command{
	Use:   "show [transaction-id]",
	Short: "Show a stored transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			t, err := a.txs.Transaction(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, t)
		})
	},
}

var txStatusCmd = &cobra.Command{
	Use:   "status [transaction-id]",
	Short: "Reconcile a transaction with the gateway",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.txs.TransactionStatus(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		})
	},
}

var txListCmd = &cobra.Command{
	Use:   "list [reference-id]",
	Short: "List payment attempts for a booking or enrollment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refType, _ := cmd.Flags().GetString("type")
		latest, _ := cmd.Flags().GetBool("latest")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if latest {
				t, err := a.txs.TransactionByReference(ctx, args[0], domain.ReferenceType(refType))
				if err != nil {
					return err
				}
				return printJSON(cmd, t)
			}
			ts, err := a.txs.ListByReference(ctx, args[0], domain.ReferenceType(refType))
			if err != nil {
				return err
			}
			return printJSON(cmd, ts)
		})
	},
}

func init() {
	txCmd.AddCommand(txShowCmd)
	txCmd.AddCommand(txStatusCmd)
	txCmd.AddCommand(txListCmd)
	txListCmd.Flags().String("type", string(domain.ReferenceBooking), "Reference type: booking or enrollment")
	txListCmd.Flags().Bool("latest", false, "Only the most recent attempt")
}
