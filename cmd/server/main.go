package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/richardliu001/auction-market/internal/config"
	"github.com/richardliu001/auction-market/internal/logger"
	"github.com/richardliu001/auction-market/internal/model"
	"github.com/richardliu001/auction-market/internal/repo"
	"github.com/richardliu001/auction-market/internal/service"
	httptransport "github.com/richardliu001/auction-market/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "internal/config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer (used by the poller; the server only fills the outbox)
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer kw.Close()

	// 6. repo & services
	repository := repo.NewRepository(gdb, rdb, kw, log)
	notifications := service.NewNotificationService(repository, log)
	wallets := service.NewWalletService(repository, log)
	bidding := service.NewBiddingService(repository, repository, wallets, notifications, log)
	products := service.NewProductService(repository, notifications, log)
	feedback := service.NewFeedbackService(repository, repository, notifications, log)
	settlement := service.NewSettlementService(repository, repository, wallets, notifications, log)
	sweeper := service.NewSweeper(settlement, repo.NewRedisLocker(rdb),
		cfg.Auction.SweepLockKey, cfg.Auction.SweepLockTTL, cfg.Auction.SweepInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. settlement sweep: once now, then every interval
	go sweeper.Run(ctx)

	// 8. gin router
	router := httptransport.NewRouter(httptransport.Services{
		Wallets:       wallets,
		Bidding:       bidding,
		Products:      products,
		Feedback:      feedback,
		Notifications: notifications,
		Sweeper:       sweeper,
	}, cfg.RateLimit, cfg.Auth, log)

	// 9. serve
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: router}
	go func() {
		log.Infof("auction-server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
