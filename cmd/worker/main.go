package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tallyform/tallyform/internal/app"
	"github.com/tallyform/tallyform/internal/directory"
	"github.com/tallyform/tallyform/internal/ledger"
	"github.com/tallyform/tallyform/internal/platform/cache"
	"github.com/tallyform/tallyform/internal/platform/db"
	"github.com/tallyform/tallyform/internal/storage"
	"github.com/tallyform/tallyform/jobs"
	"github.com/tallyform/tallyform/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store, err := app.NewStore(ctx, cfg)
	if err != nil {
		logger.Error("init storage", slog.Any("error", err))
		os.Exit(1)
	}

	roster := directory.NewRoster(pool)
	gate := directory.NewGate(roster, cfg.DirectoryCacheTTL, logger)

	provisioner := storage.NewProvisioner(store, logger)
	workbook := ledger.NewPGWorkbook(pool)
	backups := ledger.NewPGBackupStore(pool)
	locker := ledger.NewRedisLocker(redisClient, cfg.LockTTL, cfg.LockWait)
	engine := ledger.NewEngine(gate, workbook, backups, locker, "submissions", logger)

	renderer := report.NewClient(cfg.GotenbergURL)
	renderJob := jobs.NewReportRenderJob(engine, provisioner, store, renderer, logger)
	rosterJob := jobs.NewRosterRefreshJob(gate, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeReportRender, Handler: renderJob.Handle},
			{Type: jobs.TaskTypeRosterRefresh, Handler: rosterJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: jobs.NewRosterRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
