package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/gymhub/internal/database"
	"github.com/hugh/gymhub/internal/tasks"
	"github.com/hugh/gymhub/pkg/config"
	"github.com/hugh/gymhub/pkg/queue"
	"github.com/hugh/gymhub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting gymhub worker")

	if err := util.ValidateCronExpr(cfg.Security.PruneSchedule); err != nil {
		logger.Error("invalid SECURITY_PRUNE_SCHEDULE", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Security.WorkerConcurrency)

	handler := tasks.NewHandler(db, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	pruneTask, err := tasks.NewPruneTask(cfg.Security.EventRetentionDays)
	if err != nil {
		logger.Error("failed to build prune task", "error", err)
		os.Exit(1)
	}
	scheduler := queue.NewScheduler(&cfg.Redis)
	if _, err := scheduler.Register(cfg.Security.PruneSchedule, pruneTask); err != nil {
		logger.Error("failed to schedule prune task", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Security.PruneSchedule, time.Now()); err == nil {
		logger.Info("security event pruning scheduled",
			"schedule", cfg.Security.PruneSchedule,
			"retention_days", cfg.Security.EventRetentionDays,
			"next_run", next,
		)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(mux); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	scheduler.Shutdown()
	srv.Shutdown()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
