package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/storefront/internal/app"
	"github.com/odyssey-erp/storefront/internal/cart"
	"github.com/odyssey-erp/storefront/internal/catalog"
	"github.com/odyssey-erp/storefront/internal/checkout"
	"github.com/odyssey-erp/storefront/internal/device"
	"github.com/odyssey-erp/storefront/internal/observability"
	"github.com/odyssey-erp/storefront/internal/payment"
	"github.com/odyssey-erp/storefront/internal/storefront"
	"github.com/odyssey-erp/storefront/internal/view"
	"github.com/odyssey-erp/storefront/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store backend", slog.String("backend", cfg.StoreBackend), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("close store backend", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	hub := device.NewHub()
	unsubscribe, err := hub.Subscribe(device.TopicConnectivity, func(ev device.Event) {
		metrics.SetOnline(ev.Online)
		if ev.Online {
			logger.Info("backend reachable again")
		} else {
			logger.Warn("backend unreachable, refusing changes")
		}
	})
	if err != nil {
		logger.Error("subscribe connectivity", slog.Any("error", err))
		os.Exit(1)
	}
	defer unsubscribe()

	probe := device.NewConnectivityProbe(backend.Pinger, hub, device.ProbeConfig{
		Interval:         cfg.ProbeInterval,
		FailureThreshold: cfg.ProbeFailureThreshold,
	}, logger)
	go probe.Run(ctx)

	catalogService := catalog.NewService(backend.Products, logger)
	cartService := cart.NewService(backend.Cart, catalogService, logger)

	var gateway payment.Gateway
	switch cfg.PaymentProvider {
	case app.PaymentPayPal:
		gateway = payment.NewPayPal(payment.PayPalConfig{
			BaseURL:      cfg.PayPalBaseURL,
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalSecret,
		}, logger)
	default:
		logger.Warn("using sandbox payment gateway; no money moves")
		gateway = payment.NewSandbox()
	}

	checkoutOpts := []checkout.Option{checkout.WithRecorder(metrics)}
	var jobHandler *jobs.Handler
	if cfg.JobsEnabled {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient := jobs.NewClient(redisOpts, logger)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		checkoutOpts = append(checkoutOpts, checkout.WithEnqueuer(jobClient))
		jobHandler = jobs.NewHandler(inspector, logger)
	}
	checkoutService := checkout.NewService(checkout.Config{
		Currency:  cfg.PaymentCurrency,
		ReturnURL: cfg.CheckoutReturnURL(),
		CancelURL: cfg.CheckoutCancelURL(),
	}, cartService, gateway, logger, checkoutOpts...)

	gyroscope := device.NewGyroscope(hub, cfg.DevicePermissionRequired)
	flashlight := device.NewFlashlight(&device.VirtualTorch{})

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Metrics:     metrics,
		Environment: hub,
		StorefrontHandler: storefront.NewHandler(storefront.Deps{
			Logger:        logger,
			Views:         templates,
			Catalog:       catalogService,
			Cart:          cartService,
			Checkout:      checkoutService,
			Env:           hub,
			Flashlight:    flashlight,
			RedirectDelay: cfg.RedirectDelay,
		}),
		CatalogHandler:  catalog.NewHandler(logger, catalogService),
		CartHandler:     cart.NewHandler(logger, cartService),
		CheckoutHandler: checkout.NewHandler(logger, checkoutService),
		DeviceHandler:   device.NewHandler(logger, hub, probe, gyroscope, flashlight),
		JobHandler:      jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", backend.Name))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
