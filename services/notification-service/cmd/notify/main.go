package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/you/tourism-booking/pkg/config"
	"github.com/you/tourism-booking/pkg/logger"
	"github.com/you/tourism-booking/pkg/mq"
	"github.com/you/tourism-booking/services/notification-service/internal/dedup"
	"github.com/you/tourism-booking/services/notification-service/internal/notifier"
	"github.com/you/tourism-booking/services/notification-service/internal/worker"
)

func main() {
	cfg, err := config.LoadNotify()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New("notification", logger.Options{Env: cfg.Env, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mqCfg := mq.ConsumerConfig{
		URL:       cfg.RabbitURL,
		Exchanges: cfg.Exchanges,
		Queue:     cfg.Queue,
		Keys:      cfg.Bindings,
		Tag:       "notification-service",
		Prefetch:  cfg.Prefetch,
		DLXName:   cfg.DLXName,
		DLXQueue:  cfg.DLXQueue,
	}

	var cons *mq.Consumer
	for {
		cons, err = mq.Dial(mqCfg)
		if err == nil {
			break
		}
		zl.Warn("connect failed, retry in 2s", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	defer cons.Close()

	var seen worker.Seen = dedup.NewMemory(cfg.DedupTTL)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zl.Fatal("parse REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		seen = dedup.NewRedis(rdb, cfg.DedupTTL)
	}

	w := worker.NewConsumer(cons, notifier.NewLog(zl.Named("notifier")), seen, zl.Named("worker"))
	zl.Info("notification service started",
		zap.String("queue", cfg.Queue),
		zap.Strings("exchanges", cfg.Exchanges),
		zap.Strings("bindings", cfg.Bindings))

	if err := w.Run(ctx); err != nil {
		zl.Error("worker stopped", zap.Error(err))
	}
}
