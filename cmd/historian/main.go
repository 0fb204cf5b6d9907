// cmd/historian/main.go is the asynchronous results worker: it pops
// finished-round records off the Redis queue the match server feeds and
// persists them to Postgres.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/openroyale/royaled/internal/cache"
	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/historian"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Getenv("DATABASE_URL") == "" {
		logger.Fatal("DATABASE_URL must be set")
	}
	database.ConnectDB("")
	if err := database.RunMigrations(ctx, ""); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}

	svc := historian.New(logger, cache.Rdb)
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("historian: %v", err)
	}
	logger.Info("historian shutdown complete")
}
