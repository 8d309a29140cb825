package main

import (
	"log"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/database"
	"tournament-ledger/internal/logging"
	"tournament-ledger/internal/worker"
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

	zap.L().Info("Starting Asynq Worker...", zap.String("redis", cfg.RedisAddr))
	if err := worker.StartWorker(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, db); err != nil {
		zap.L().Fatal("Worker stopped", zap.Error(err))
	}
}
