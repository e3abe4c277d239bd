package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TraderInsightsLab/Sistem/internal/analysis"
	"github.com/TraderInsightsLab/Sistem/internal/config"
	"github.com/TraderInsightsLab/Sistem/internal/database"
	"github.com/TraderInsightsLab/Sistem/internal/handlers"
	logger "github.com/TraderInsightsLab/Sistem/internal/logging"
	"github.com/TraderInsightsLab/Sistem/internal/metrics"
	"github.com/TraderInsightsLab/Sistem/internal/models"
	"github.com/TraderInsightsLab/Sistem/internal/payment"
	"github.com/TraderInsightsLab/Sistem/internal/report"
	"github.com/TraderInsightsLab/Sistem/internal/repository"
	"github.com/TraderInsightsLab/Sistem/internal/router"
	"github.com/TraderInsightsLab/Sistem/internal/services"
	"github.com/TraderInsightsLab/Sistem/internal/session"
)

// store is everything the server needs from persistence.
type store interface {
	session.Store
	services.WebhookLog
	services.Housekeeping
	services.AnalyticsSink
}

func main() {
	projectRoot, err := os.Getwd()
	if err != nil {
		panic("failed to resolve working directory: " + err.Error())
	}

	// Load configuration with a console logger, then switch to the rotating one.
	bootLog := logger.Console()
	if err := config.Init(projectRoot, bootLog); err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}
	conf := config.Conf

	log, err := logger.Init(projectRoot, logger.Options{
		Directory:  conf.Logging.Directory,
		MaxSize:    conf.Logging.MaxSize,
		MaxBackups: conf.Logging.MaxBackups,
		MaxAge:     conf.Logging.MaxAge,
		Compress:   conf.Logging.Compress,
	})
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	catalogPath := conf.Catalog.Path
	if !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(projectRoot, catalogPath)
	}
	catalog, err := models.LoadCatalog(catalogPath)
	if err != nil {
		log.Fatal("Failed to load question catalog", zap.Error(err))
	}
	log.Info("Question catalog loaded", zap.String("version", catalog.Version), zap.Int("questions", len(catalog.List())))

	var st store
	switch conf.Database.Driver {
	case "memory":
		log.Warn("Using the in-memory store; sessions are lost on restart")
		st = repository.NewMemoryStore()
	default:
		db, err := database.Open(conf.Database, conf.Logging.SlowQuery, log)
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		st = repository.NewGormStore(db)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	funnelMetrics, err := metrics.NewFunnel(reg)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	var analyzer analysis.Analyzer = analysis.FallbackAnalyzer{}
	if conf.Analysis.APIKey != "" {
		analyzer, err = analysis.NewClient(analysis.Config{
			BaseURL:     conf.Analysis.BaseURL,
			APIKey:      conf.Analysis.APIKey,
			Model:       conf.Analysis.Model,
			Temperature: conf.Analysis.Temperature,
			TopP:        conf.Analysis.TopP,
			MaxTokens:   conf.Analysis.MaxTokens,
			Timeout:     conf.Analysis.Timeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to configure analysis client", zap.Error(err))
		}
	} else {
		log.Warn("No analysis API key configured; using the rule-based profile")
	}

	gateway, err := payment.NewStripeGateway(payment.Config{
		SecretKey:     conf.Payment.SecretKey,
		WebhookSecret: conf.Payment.WebhookSecret,
		ProductName:   conf.Payment.ProductName,
		SuccessURL:    conf.Payment.SuccessURL,
		CancelURL:     conf.Payment.CancelURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to configure payment gateway", zap.Error(err))
	}

	mailer := services.NewEmailService(services.EmailConfig{
		Host:     conf.Email.Host,
		Port:     conf.Email.Port,
		Username: conf.Email.Username,
		Password: conf.Email.Password,
		From:     conf.Email.From,
		FromName: conf.Email.FromName,
	}, log)
	renderer := report.NewChromeRenderer(conf.Report.ChromePath, conf.Report.RenderTimeout, log)

	sessions := session.NewService(st, catalog, log)
	analytics := services.NewAnalytics(st, log)
	funnel := services.NewFunnel(sessions, analyzer, gateway, services.Pricing{
		AmountMinorUnits: conf.Payment.AmountMinorUnits,
		Currency:         conf.Payment.Currency,
	}, analytics, funnelMetrics, log)
	reports := services.NewReportService(sessions, renderer, mailer, services.RetryPolicy{
		MaxElapsedTime: conf.Housekeeping.RetryMaxElapsed,
	}, analytics, funnelMetrics, log)
	webhook := services.NewPaymentWebhook(gateway, sessions, st, reports, analytics, funnelMetrics, log)
	gameService := services.NewGameService(funnel, conf.Games.Capacity, conf.Games.TTL, funnelMetrics, log)

	scheduler := services.NewScheduler(services.SchedulerConfig{
		CleanupSpec:     conf.Housekeeping.CleanupSchedule,
		ReportRetrySpec: conf.Housekeeping.ReportRetrySchedule,
		StatsSpec:       conf.Housekeeping.StatsSchedule,
		StaleAfter:      conf.Housekeeping.StaleAfter,
		BatchSize:       conf.Housekeeping.BatchSize,
	}, sessions, st, reports, funnelMetrics, log)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.Setup(log, router.Options{
		SessionSecret:  conf.Server.SessionSecret,
		SecureCookies:  conf.Server.SecureCookies,
		AllowedOrigins: conf.Server.AllowedOrigins,
		RateLimit:      conf.Server.RateLimit,
	}, router.Handlers{
		Assessment: handlers.NewAssessmentHandler(funnel, log),
		Games:      handlers.NewGamesHandler(gameService, log),
		Results:    handlers.NewResultsHandler(funnel, reports, log),
		Webhook:    handlers.NewWebhookHandler(webhook, log),
		Health:     handlers.Health(catalog.Version, time.Now()),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Server listening on http://localhost:" + conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	scheduler.Stop()

	done := make(chan struct{})
	go func() {
		reports.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("Report deliveries still running at shutdown; the retry sweep will resume them")
	}
}
