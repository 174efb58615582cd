package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakmart/storefront/internal/adapter/handler"
	"github.com/oakmart/storefront/internal/adapter/notifier"
	"github.com/oakmart/storefront/internal/adapter/storage"
	"github.com/oakmart/storefront/internal/config"
	"github.com/oakmart/storefront/internal/core/service"
	"github.com/oakmart/storefront/internal/port"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(config.MySQLMaxOpenConns)
	db.SetMaxIdleConns(config.MySQLMaxIdleConns)
	db.SetConnMaxLifetime(config.MySQLConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: config.RedisPoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisAdapter(rdb)
	coupons := storage.NewMySQLCouponService(db)
	addresses := storage.NewMySQLAddressService(db)

	var orderNotifier port.Notifier = notifier.Nop{}
	var kafkaNotifier *notifier.KafkaNotifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier = notifier.NewKafkaNotifier(cfg.KafkaBrokers, config.OrderConfirmedTopic)
		orderNotifier = kafkaNotifier
		logger.Info("order confirmations enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	// Services
	checkoutService := service.NewCheckoutService(store, cache, coupons, addresses, orderNotifier, logger)
	inventoryService := service.NewInventoryService(store, logger)

	// HTTP server
	httpHandler := handler.NewHTTPHandler(checkoutService, inventoryService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Routes(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if kafkaNotifier != nil {
		kafkaNotifier.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
