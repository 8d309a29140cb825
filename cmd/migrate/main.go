package main

import (
	"log"

	"go.uber.org/zap"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/database"
	"tournament-ledger/internal/logging"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	flush, err := logging.Init(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer flush()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		zap.L().Fatal("Database unavailable", zap.Error(err))
	}

	// Run Migrations
	zap.L().Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		zap.L().Fatal("Migrations failed", zap.Error(err))
	}
	zap.L().Info("Migrations completed successfully!")
}
