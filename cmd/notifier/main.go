package main

import (
	"DebtNotifier/internal/config"
	"DebtNotifier/internal/handlers"
	"DebtNotifier/internal/notify"
	"DebtNotifier/internal/rabbitMQ"
	"DebtNotifier/internal/redisdb"
	"DebtNotifier/internal/scheduler"
	"DebtNotifier/internal/storage/psql"
	"DebtNotifier/internal/worker"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.MustLoad()

	logLevel := slog.LevelInfo
	if cfg.Env == "local" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// reminder store (owned by the CRUD service, read here)
	storage, err := psql.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("failed to open reminder storage: %s", err)
	}
	defer storage.Close()

	// job records
	rdb := redisdb.DeclareRedisDataBase(redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// broker: one connection, separate channels for publish and consume
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %s", err)
	}
	defer conn.Close()

	pubCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open publish channel: %s", err)
	}
	defer pubCh.Close()

	if err := rabbitMQ.Declare(pubCh); err != nil {
		log.Fatalf("failed to declare broker topology: %s", err)
	}

	consCh, err := conn.Channel()
	if err != nil {
		log.Fatalf("failed to open consume channel: %s", err)
	}
	defer consCh.Close()

	producer := rabbitMQ.NewQueueProps(pubCh)
	sched := scheduler.New(rdb, producer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// worker pool
	deliveries, err := rabbitMQ.Consume(consCh, cfg.Worker.Concurrency)
	if err != nil {
		log.Fatalf("failed to start consuming: %s", err)
	}
	pusher := notify.NewExpoClient(cfg.Worker.PushURL, cfg.Worker.ProviderTimeout)
	pool := worker.New(logger, storage, rdb, pusher, cfg.Worker.Concurrency, cfg.Worker.ProviderTimeout)

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		pool.Run(ctx, deliveries)
	}()

	// nightly purge of finished jobs, same 24h window as the manual endpoint
	c := cron.New()
	if _, err := c.AddFunc("30 3 * * *", func() {
		removed, err := rdb.Cleanup(context.Background(), 24*time.Hour)
		if err != nil {
			logger.Error("scheduled cleanup failed", "error", err)
			return
		}
		logger.Info("scheduled cleanup done", "removed", removed)
	}); err != nil {
		log.Fatalf("failed to register cleanup job: %s", err)
	}
	c.Start()
	defer c.Stop()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.URLFormat)

	router.Post("/reminders/{id}/schedule", handlers.ScheduleReminder(logger, storage, sched))
	router.Delete("/reminders/{id}/schedule", handlers.CancelReminder(logger, sched))
	router.Get("/queue/stats", handlers.QueueStats(logger, rdb))
	router.Post("/queue/cleanup", handlers.QueueCleanup(logger, rdb))

	srv := &http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	go func() {
		logger.Info("server is starting", "address", cfg.HTTPServer.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	// wait for in-flight notifications before closing connections
	<-poolDone
}
