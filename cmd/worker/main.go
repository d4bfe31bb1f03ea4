package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/storefront/internal/app"
	jobmetrics "github.com/odyssey-erp/storefront/internal/jobs"
	"github.com/odyssey-erp/storefront/jobs"
	"github.com/odyssey-erp/storefront/report"
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

	var sink jobs.ReceiptSink = jobs.LogSink{Logger: logger}
	if cfg.ReceiptDir != "" {
		if err := os.MkdirAll(cfg.ReceiptDir, 0o755); err != nil {
			logger.Error("create receipt dir", slog.String("dir", cfg.ReceiptDir), slog.Any("error", err))
			os.Exit(1)
		}
		sink = jobs.DirSink{Dir: cfg.ReceiptDir}
		if cfg.GotenbergURL != "" {
			renderer := report.NewClient(cfg.GotenbergURL, nil)
			if err := renderer.Ping(ctx); err != nil {
				logger.Warn("gotenberg not reachable yet", slog.String("url", cfg.GotenbergURL), slog.Any("error", err))
			}
			sink = jobs.PDFSink{Renderer: renderer, Dir: cfg.ReceiptDir}
		}
	}
	receiptJob := jobs.NewCheckoutReceiptJob(sink, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCheckoutReceipt, Handler: receiptJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr), slog.String("sink", sink.Name()))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
