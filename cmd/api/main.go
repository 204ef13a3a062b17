package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"

	"github.com/invisifeed/invisifeed/internal/auth"
	"github.com/invisifeed/invisifeed/internal/business"
	businessStore "github.com/invisifeed/invisifeed/internal/business/store"
	"github.com/invisifeed/invisifeed/internal/config"
	"github.com/invisifeed/invisifeed/internal/coupon"
	couponStore "github.com/invisifeed/invisifeed/internal/coupon/store"
	"github.com/invisifeed/invisifeed/internal/database"
	"github.com/invisifeed/invisifeed/internal/delivery"
	"github.com/invisifeed/invisifeed/internal/extract"
	"github.com/invisifeed/invisifeed/internal/feedback"
	feedbackStore "github.com/invisifeed/invisifeed/internal/feedback/store"
	"github.com/invisifeed/invisifeed/internal/gstin"
	apiHttp "github.com/invisifeed/invisifeed/internal/http"
	accountHandler "github.com/invisifeed/invisifeed/internal/http/account"
	couponHandler "github.com/invisifeed/invisifeed/internal/http/coupon"
	dashboardHandler "github.com/invisifeed/invisifeed/internal/http/dashboard"
	feedbackHandler "github.com/invisifeed/invisifeed/internal/http/feedback"
	invoiceHandler "github.com/invisifeed/invisifeed/internal/http/invoice"
	profileHandler "github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/insights"
	"github.com/invisifeed/invisifeed/internal/invoice"
	invoiceStore "github.com/invisifeed/invisifeed/internal/invoice/store"
	"github.com/invisifeed/invisifeed/internal/metrics"
	metricsStore "github.com/invisifeed/invisifeed/internal/metrics/store"
	"github.com/invisifeed/invisifeed/internal/pdf"
	"github.com/invisifeed/invisifeed/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	objects, err := storage.New(ctx, storage.Config{
		Endpoint:     cfg.Storage.Endpoint,
		Region:       cfg.Storage.Region,
		Bucket:       cfg.Storage.Bucket,
		AccessKey:    cfg.Storage.AccessKey,
		SecretKey:    cfg.Storage.SecretKey,
		UsePathStyle: cfg.Storage.UsePathStyle,
		PublicURL:    cfg.Storage.PublicURL,
	})
	if err != nil {
		return err
	}

	if err := objects.EnsureBucket(ctx); err != nil {
		return err
	}

	renderer := pdf.New(pdf.Config{
		RemoteURL: cfg.Chrome.RemoteURL,
		Timeout:   cfg.Chrome.Timeout,
		NoSandbox: cfg.Chrome.NoSandbox,
	})
	defer renderer.Close()

	var cache metrics.Cache = metrics.NopCache{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, dashboards will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache = metrics.NewRedisCache(client, cfg.Redis.MetricsTTL)
		}
	}

	var extractor invoice.Extractor = extract.Nop{}
	if cfg.DocumentAI.ProjectID != "" {
		docAI, err := extract.New(ctx, extract.Config{
			ProjectID:       cfg.DocumentAI.ProjectID,
			Location:        cfg.DocumentAI.Location,
			ProcessorID:     cfg.DocumentAI.ProcessorID,
			CredentialsFile: cfg.DocumentAI.CredentialsFile,
			Timeout:         cfg.DocumentAI.Timeout,
		})
		if err != nil {
			return err
		}
		defer docAI.Close()

		extractor = docAI
	} else {
		slog.Warn("document ai not configured, uploads will not be scanned for customer details")
	}

	var generator metrics.InsightGenerator = insights.Nop{}
	if cfg.OpenAI.APIKey != "" {
		generator = insights.NewOpenAI(openai.NewClient(cfg.OpenAI.APIKey), cfg.OpenAI.Model)
	}

	var mailer delivery.Mailer = delivery.Disabled{}
	if cfg.SendGrid.APIKey != "" {
		sg, err := delivery.NewSendGrid(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.FromName, "")
		if err != nil {
			return err
		}

		mailer = sg
	} else {
		slog.Warn("sendgrid not configured, invoice e-mails are disabled")
	}

	limits := business.Limits{
		FreeDaily: cfg.Limits.FreeDaily,
		ProDaily:  cfg.Limits.ProDaily,
		Window:    cfg.Limits.Window,
	}

	var (
		businesses = businessStore.New(db)
		coupons    = couponStore.New(db)
		issuer     = auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	)

	var (
		businessService = business.NewService(businesses, gstin.NewClient(cfg.GSTIN.Endpoint, cfg.GSTIN.APIKey))
		invoiceService  = invoice.NewService(invoiceStore.New(db), businesses, renderer, objects, extractor, cache, invoice.Options{
			BaseURL:        cfg.App.BaseURL,
			MaxUploadBytes: cfg.Limits.MaxUploadBytes,
			Limits:         limits,
		})
		couponService   = coupon.NewService(coupons)
		feedbackService = feedback.NewService(feedbackStore.New(db), coupons, cache)
		metricsService  = metrics.NewService(metricsStore.New(db), businesses, cache, generator)
		deliveryService = delivery.NewService(invoiceService, mailer)
	)

	router := apiHttp.New(apiHttp.Handlers{
		Account:   accountHandler.NewHandler(businessService, issuer, invoiceService, limits),
		Profile:   profileHandler.NewHandler(businessService, limits),
		Invoice:   invoiceHandler.NewHandler(invoiceService, deliveryService, cfg.Limits.MaxUploadBytes),
		Coupon:    couponHandler.NewHandler(couponService),
		Dashboard: dashboardHandler.NewHandler(metricsService),
		Feedback:  feedbackHandler.NewHandler(feedbackService, couponService),
	}, apiHttp.Options{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
		Authenticate:   issuer.Authenticate,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
