package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ddll/leadercheck/internal/archive"
	"github.com/ddll/leadercheck/internal/config"
	"github.com/ddll/leadercheck/internal/database"
	"github.com/ddll/leadercheck/internal/handler/health"
	"github.com/ddll/leadercheck/internal/migrations"
	"github.com/ddll/leadercheck/internal/notify"
	"github.com/ddll/leadercheck/internal/questionbank"
	"github.com/ddll/leadercheck/internal/server"
)

const version = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(stdout, figure.NewFigure("LEADERCHECK", "", true).String())
	fmt.Fprintf(stdout, "Leadership Self-Check API (v%s)\n\n", version)

	logOut := stdout
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer lj.Close()
		logOut = io.MultiWriter(stdout, lj)
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	bank, err := questionbank.Load(cfg.QuestionBank)
	if err != nil {
		return fmt.Errorf("loading question bank: %w", err)
	}

	checks := map[string]health.Checker{}

	// --- Store ---
	var store server.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = server.NewMemStore()
		logger.Warn("using in-memory store, submissions are lost on restart")
	default:
		db, err := database.Open(ctx, cfg.DBPath, database.Options{
			BusyTimeout:  cfg.DBBusyTimeout,
			MaxOpenConns: cfg.DBMaxConns,
		})
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()

		if err := migrations.RunContext(ctx, db); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		store = server.NewSQLiteStore(db)
	}
	checks[cfg.Store] = health.CheckFunc(store.Ping)

	// --- Notification sinks ---
	var sinks notify.Multi
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Timeout))
		logger.Info("webhook notifications enabled")
	}
	if cfg.Redis.URL != "" {
		rdb, err := notify.OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		sinks = append(sinks, notify.NewRedis(rdb, cfg.Redis.Channel))
		checks["redis"] = redisChecker{rdb}
		logger.Info("connected to redis", "channel", cfg.Redis.Channel)
	}

	// --- Report archive ---
	var reports server.Archiver
	if cfg.S3.Endpoint != "" {
		a, err := archive.New(ctx, archive.Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("connecting to archive: %w", err)
		}
		reports = a
		checks["archive"] = a
		logger.Info("archiving reports", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	}

	// --- Submission pipeline and sessions ---
	recorder := server.NewRecorder(store)
	pipeline := server.NewPipeline(recorder, server.PipelineOptions{
		Workers:   cfg.SubmitWorkers,
		QueueSize: cfg.SubmitQueue,
		Notifier:  sinks,
		Archive:   reports,
		Logger:    logger,
	})
	sessions := server.NewSessions(bank, pipeline, cfg.SessionTTL)

	// --- HTTP Server ---
	srv := server.New(server.Options{
		Addr:        cfg.HTTPAddr,
		Logger:      logger,
		Store:       store,
		Sessions:    sessions,
		Recorder:    recorder,
		Pipeline:    pipeline,
		Health:      health.NewHandler(logger, checks).Routes(),
		SPADir:      cfg.SPADir,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   rate.Limit(cfg.RateLimit),
		RateBurst:   cfg.RateBurst,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	// The pipeline outlives the HTTP server: in-flight submits still
	// dispatch while Shutdown waits on them.
	pipeCtx, stopPipeline := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPipeline()

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		logger.Info("draining submission pipeline")
		stopPipeline()
		return err
	})

	g.Go(func() error {
		return pipeline.Run(pipeCtx)
	})

	g.Go(func() error {
		return sessions.Run(gctx)
	})

	return g.Wait()
}

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
