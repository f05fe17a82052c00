package main

import (
	"context"

	"coffeecart/internal/config"
	"coffeecart/internal/db"
	"coffeecart/internal/logging"
	"coffeecart/internal/migrate"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("migrate")

	versions, err := migrate.Versions()
	if err != nil {
		logger.Fatal("read embedded migrations", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	logger.Info("migrations applied", zap.Strings("versions", versions))
}
