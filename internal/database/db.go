package database

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var DB *pgxpool.Pool

// ConnectDB opens the global pool. DATABASE_URL takes precedence over the
// DSN assembled from server.cfg so a deployment can keep credentials out of
// the config file.
func ConnectDB(fallbackDSN string) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		connStr = fallbackDSN
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("unable to parse pgx config: %v", err)
	}

	DB, err = pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("unable to create pgx pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	log.Printf("Connected to database")
}

// Connected reports whether ConnectDB has run. The server can operate
// without a database; accounts are then disabled.
func Connected() bool {
	return DB != nil
}
