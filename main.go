package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/database"
	grpcServer "tournament-ledger/internal/grpc"
	"tournament-ledger/internal/handlers"
	"tournament-ledger/internal/logging"
	"tournament-ledger/internal/notify"
	"tournament-ledger/internal/prize"
	"tournament-ledger/internal/services"
	"tournament-ledger/internal/storage"
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

	if cfg.JWTSecret == "" {
		zap.L().Fatal("JWT_SECRET is required")
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	// Initialize Database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		zap.L().Fatal("Database unavailable", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zap.L().Fatal("Migration failed", zap.Error(err))
	}

	prizes := prize.Default()
	if cfg.PrizeTableFile != "" {
		if prizes, err = prize.Load(cfg.PrizeTableFile); err != nil {
			zap.L().Fatal("Failed to load prize table", zap.String("file", cfg.PrizeTableFile), zap.Error(err))
		}
	}

	// Redis/Asynq Client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer asynqClient.Close()
	notifier := notify.NewQueueNotifier(asynqClient)

	// Services
	uow := services.NewUnitOfWork(db, cfg.Ledger.Isolation, cfg.Ledger.MaxRetries)
	ledger := services.NewLedgerService(db)
	tournaments := services.NewTournamentService(db, prizes)
	deposits := services.NewDepositService(uow, ledger, notifier)
	withdrawals := services.NewWithdrawalService(uow, ledger, notifier, cfg.Ledger.MaxWithdrawalCoins)
	winners := services.NewWinnerService(uow, ledger, prizes, notifier)
	reviews := services.NewReviewService(uow, ledger, deposits, withdrawals, notifier)

	h := &handlers.Handler{
		Ledger:       ledger,
		Tournaments:  tournaments,
		Registration: services.NewRegistrationService(uow, ledger, notifier),
		Winners:      winners,
		Deposits:     deposits,
		Withdrawals:  withdrawals,
		Reviews:      reviews,
	}
	if cfg.Storage.Bucket != "" {
		proofs, err := storage.NewS3ProofStore(context.Background(), cfg.Storage)
		if err != nil {
			zap.L().Fatal("Failed to configure proof storage", zap.Error(err))
		}
		h.Proofs = proofs
	} else {
		zap.L().Warn("S3_BUCKET not set, proof uploads disabled")
	}

	r := gin.Default()
	h.RegisterRoutes(r, cfg.JWTSecret)

	// Start gRPC server
	grpcSrv, err := grpcServer.StartGRPCServer(cfg.GRPCPort, grpcServer.NewServer(ledger, winners, reviews))
	if err != nil {
		zap.L().Fatal("Failed to start gRPC server", zap.Error(err))
	}
	defer grpcSrv.GracefulStop()

	// Start Cron Scheduler
	if cfg.SchedulerEnabled {
		c, err := services.NewScheduler(tournaments, ledger).Start()
		if err != nil {
			zap.L().Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer c.Stop()
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		zap.L().Info("HTTP server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("HTTP shutdown failed", zap.Error(err))
	}
}
