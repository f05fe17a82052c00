package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"coffeecart/internal/config"
	"coffeecart/internal/db"
	"coffeecart/internal/logging"
	cartrepo "coffeecart/internal/repository/cart"
	catalogrepo "coffeecart/internal/repository/catalog"
	orderrepo "coffeecart/internal/repository/order"
	tokenrepo "coffeecart/internal/repository/token"
	userrepo "coffeecart/internal/repository/user"
	"coffeecart/internal/storefront"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("storefront")

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	links, err := storefront.NewPaymentLinks(cfg.PaymentCheckoutURL)
	if err != nil {
		logger.Fatal("init payment links", zap.Error(err))
	}

	srv, err := storefront.New(cfg.StorefrontAddr, logger, storefront.Deps{
		Users:    userrepo.NewPostgres(dbpool),
		Tokens:   tokenrepo.NewPostgres(dbpool),
		Catalog:  catalogrepo.NewPostgres(dbpool, logger.Named("catalog")),
		Carts:    cartrepo.NewPostgres(dbpool),
		Orders:   orderrepo.NewPostgres(dbpool),
		Payments: links,
		Currency: cfg.Currency,
		Ready:    dbpool.Ping,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.StorefrontAddr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
