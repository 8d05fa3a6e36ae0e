package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/pkg/db"
	"github.com/you/tourism-booking/pkg/mq"
	"github.com/you/tourism-booking/services/tourism-service/internal/consumer"
	"github.com/you/tourism-booking/services/tourism-service/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Consume payment events and relay pending notifications",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := repository.Migrate(a.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	paymentCons, err := mq.NewConsumer(a.cfg.RabbitURL, a.cfg.PaymentExchange, a.cfg.PaymentQueue,
		[]string{consumer.RKPaymentPaid, consumer.RKPaymentFailed})
	if err != nil {
		return err
	}
	defer paymentCons.Close()

	pc := consumer.NewPaymentConsumer(a.bookings, paymentCons, a.log.Named("payment-consumer"))
	errc := make(chan error, 1)
	go func() { errc <- pc.Run(ctx) }()
	go func() {
		_ = a.dispatcher.Relay(ctx, a.cfg.OutboxInterval, a.cfg.OutboxBatch)
	}()

	a.log.Info("tourism service started",
		zap.String("payment_queue", a.cfg.PaymentQueue),
		zap.Duration("outbox_interval", a.cfg.OutboxInterval))

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("payment consumer: %w", err)
		}
	}
	a.log.Info("tourism service stopped")
	return nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadBase()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		gdb, err := db.Open(cfg.PGTourismDSN)
		if err != nil {
			return err
		}
		if err := repository.Migrate(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema migrated")
		return nil
	},
}

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and flush pending notifications",
}

var outboxPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			rows, err := a.outbox.Pending(ctx, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, rows)
		})
	},
}

var outboxFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Send pending notifications once",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, _ := cmd.Flags().GetInt("batch")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			sent, err := a.dispatcher.RelayOnce(ctx, batch)
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d notification(s)\n", sent)
			return err
		})
	},
}

func init() {
	outboxCmd.AddCommand(outboxPendingCmd)
	outboxCmd.AddCommand(outboxFlushCmd)
	outboxPendingCmd.Flags().Int("limit", 50, "Maximum rows to list")
	outboxFlushCmd.Flags().Int("batch", 50, "Maximum rows to send")
}
