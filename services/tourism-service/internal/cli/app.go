package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/tourism-booking/pkg/config"
	"github.com/you/tourism-booking/pkg/db"
	"github.com/you/tourism-booking/pkg/logger"
	"github.com/you/tourism-booking/pkg/mq"
	"github.com/you/tourism-booking/pkg/obs"
	"github.com/you/tourism-booking/services/tourism-service/internal/gateway"
	"github.com/you/tourism-booking/services/tourism-service/internal/notify"
	"github.com/you/tourism-booking/services/tourism-service/internal/repository"
	"github.com/you/tourism-booking/services/tourism-service/internal/service"
)

type app struct {
	cfg config.Tourism
	log *zap.Logger
	db  *gorm.DB

	pub         *mq.Publisher
	rdb         *redis.Client
	stopTracing func(context.Context) error

	outbox      *repository.OutboxRepo
	dispatcher  *notify.Dispatcher
	txs         *service.TransactionSvc
	bookings    *service.BookingSvc
	enrollments *service.EnrollmentSvc
}

func loadBase() (config.Tourism, *zap.Logger, error) {
	cfg, err := config.LoadTourism()
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New("tourism", logger.Options{
		Env:    cfg.Env,
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Stderr: true,
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openApp wires config, stores, gateway and notification transport into the
// lifecycle services.
func openApp(ctx context.Context) (a *app, err error) {
	cfg, log, err := loadBase()
	if err != nil {
		return nil, err
	}
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	fee, err := cfg.Fee()
	if err != nil {
		return nil, err
	}

	if a.stopTracing, err = obs.InitTracer(ctx, "tourism-service", cfg.OTLPEndpoint, cfg.Env); err != nil {
		return nil, err
	}
	if a.db, err = db.Open(cfg.PGTourismDSN); err != nil {
		return nil, err
	}
	if a.pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange); err != nil {
		return nil, err
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		a.rdb = redis.NewClient(opts)
	}

	omc, err := gateway.NewOmiseClient(cfg.OmisePub, cfg.OmiseSec)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	gw := gateway.NewOmise(omc, a.rdb, cfg.OmisePub, cfg.CustomerCacheTTL, log.Named("gateway"))

	a.outbox = repository.NewOutboxRepo(a.db)
	a.dispatcher = notify.NewDispatcher(a.outbox, notify.NewMQSender(a.pub), log.Named("outbox"))
	a.txs = service.NewTransactionSvc(repository.NewTransactionRepo(a.db), gw, cfg.Currency, cfg.MerchantName, log.Named("transaction"))
	a.bookings = service.NewBookingSvc(repository.NewBookingRepo(a.db), repository.NewAccountRepo(a.db), a.txs, a.dispatcher, log.Named("booking"))
	a.enrollments = service.NewEnrollmentSvc(repository.NewEnrollmentRepo(a.db), a.txs, a.dispatcher, fee, cfg.Currency, log.Named("enrollment"))
	return a, nil
}

func (a *app) Close() {
	if a.pub != nil {
		_ = a.pub.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.stopTracing != nil {
		if err := a.stopTracing(context.Background()); err != nil {
			a.log.Warn("tracer shutdown", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
