package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coffeecart/internal/config"
	"coffeecart/internal/events"
	"coffeecart/internal/httpserver"
	"coffeecart/internal/lineguard"
	"coffeecart/internal/logging"
	"coffeecart/internal/remote"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("api")

	client, err := remote.New(cfg.StorefrontURL, cfg.RemoteTimeout, logger.Named("remote"))
	if err != nil {
		logger.Fatal("init storefront client", zap.Error(err))
	}

	var guard lineguard.Guard = lineguard.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		guard = lineguard.NewRedis(rdb, "coffeecart", cfg.LineLockTTL, logger.Named("lineguard"))
		logger.Info("line guard backed by redis", zap.String("addr", cfg.RedisAddr))
	}

	var publisher events.Publisher = events.Nop{}
	var eventQueue *events.Async
	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Named("events"))
		defer k.Close()
		eventQueue = events.NewAsync(k, cfg.EventBuffer, 5*time.Second, logger.Named("events"))
		publisher = eventQueue
		logger.Info("checkout events published to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	sessions := httpserver.NewRegistry(client, guard, publisher, cfg.SessionIdle, logger.Named("sessions"))
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Storefront:  client,
		Sessions:    sessions,
		CORSOrigins: cfg.CORSOrigins,
		Ready:       client.Ping,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr), zap.String("storefront", cfg.StorefrontURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}

	if eventQueue != nil {
		if err := eventQueue.Close(ctx); err != nil {
			logger.Warn("pending checkout events dropped", zap.Error(err))
		}
	}
}
