// Package cli is the tourism command tree: the long-running serve command and
// one-shot operator commands over the lifecycle services.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	timeout time.Duration
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "tourism",
		Short: "Tourism booking: payments, bookings and guide enrollment",
		Long: `tourism runs the booking/enrollment lifecycle service.

"serve" consumes payment events and relays pending notifications; the other
commands run a single lifecycle operation and print the result as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Deadline for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bookingCmd)
	rootCmd.AddCommand(enrollmentCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(outboxCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// withApp runs fn against a fully wired app under the --timeout deadline.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
