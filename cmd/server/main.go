// Command server serves the finance API under /api/v1: PPh21 estimation,
// fixed asset depreciation, journal validation, incentive simulation and
// bank reconciliation.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/erp/fincalc/internal/application/finance"
	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/erp/fincalc/internal/infrastructure/cache"
	"github.com/erp/fincalc/internal/infrastructure/config"
	"github.com/erp/fincalc/internal/infrastructure/event"
	"github.com/erp/fincalc/internal/infrastructure/logger"
	"github.com/erp/fincalc/internal/infrastructure/persistence"
	"github.com/erp/fincalc/internal/infrastructure/scheduler"
	"github.com/erp/fincalc/internal/infrastructure/statement"
	"github.com/erp/fincalc/internal/infrastructure/telemetry"
	"github.com/erp/fincalc/internal/interfaces/http/handler"
	"github.com/erp/fincalc/internal/interfaces/http/middleware"
	"github.com/erp/fincalc/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting fincalc",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter("fincalc")
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if logsProvider.IsEnabled() {
		log, err = logger.New(logCfg, logsProvider.Core(logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = log.Sync()
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracingCfg := telemetry.DefaultDBTracingConfig()
		dbTracingCfg.Enabled = true
		dbTracingCfg.LogFullSQL = cfg.App.Env == "development"
		if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, sqlDB.Stats)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Register(db.DB); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Idempotency store shared by the HTTP layer and the event handlers
	idempotencyStore := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler("audit", event.NewAuditLogHandler(log), idempotencyStore, log))
	financeMetrics, err := telemetry.NewFinanceMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create finance metrics", zap.Error(err))
	}
	eventBus.Subscribe(event.NewIdempotentHandler("finance-metrics", financeMetrics, idempotencyStore, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Finance tables
	taxSchedule, err := cfg.Finance.TaxSchedule()
	if err != nil {
		log.Fatal("Invalid tax schedule", zap.Error(err))
	}
	incentiveCatalog, err := cfg.Finance.IncentiveCatalog()
	if err != nil {
		log.Fatal("Invalid incentive plans", zap.Error(err))
	}
	matchPolicy, err := cfg.Finance.MatchPolicy()
	if err != nil {
		log.Fatal("Invalid match policy", zap.Error(err))
	}
	accounts := financeapp.PostingAccounts{
		Cash:                    cfg.Finance.Accounts.Cash,
		Receivable:              cfg.Finance.Accounts.Receivable,
		Payable:                 cfg.Finance.Accounts.Payable,
		DepreciationExpense:     cfg.Finance.Accounts.DepreciationExpense,
		AccumulatedDepreciation: cfg.Finance.Accounts.AccumulatedDepreciation,
		Suspense:                cfg.Finance.Accounts.Suspense,
	}

	// Application services
	repos := db.Repositories()
	taxService := financeapp.NewTaxService(finance.NewTaxBracketCalculator(taxSchedule))
	incentiveService := financeapp.NewIncentiveService(incentiveCatalog)
	assetService := financeapp.NewAssetService(financeapp.AssetServiceConfig{
		Repo:           repos.Assets,
		Accounts:       accounts,
		EventPublisher: eventBus,
		Logger:         log,
	})
	journalService := financeapp.NewJournalService(repos.Journals, eventBus, log)
	invoiceService := financeapp.NewInvoiceService(repos.Invoices)
	reconciliationService := financeapp.NewBankReconciliationService(financeapp.BankReconciliationServiceConfig{
		TransactionRepo: repos.BankTransactions,
		InvoiceRepo:     repos.Invoices,
		Policy:          matchPolicy,
		Parser:          statement.NewOFXParser(),
		Accounts:        accounts,
		EventPublisher:  eventBus,
		Logger:          log,
	})

	// Monthly depreciation
	var depreciationScheduler *scheduler.Scheduler
	var cronTrigger *scheduler.CronTrigger
	if cfg.Scheduler.Enabled {
		depreciationScheduler = scheduler.NewScheduler(scheduler.Config{
			WorkerCount: cfg.Scheduler.WorkerCount,
			JobTimeout:  cfg.Scheduler.JobTimeout,
			MaxRetries:  cfg.Scheduler.MaxRetries,
			RetryDelay:  cfg.Scheduler.RetryDelay,
		}, scheduler.NewDepreciationExecutor(assetService), log)
		if err := depreciationScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		cronTrigger = scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			DepreciationDay: cfg.Scheduler.DepreciationDay,
			CheckInterval:   cfg.Scheduler.CheckInterval,
			MaxRetries:      cfg.Scheduler.MaxRetries,
		}, depreciationScheduler, repos.Assets, log)
		if err := cronTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start depreciation trigger", zap.Error(err))
		}
	}

	// HTTP
	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Required = cfg.App.Env == "production"

	engine, err := router.New(router.Config{
		Logger:             log,
		MaxBodySize:        cfg.HTTP.MaxBodySize,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Tenant:           tenantCfg,
		Meter:            meter,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.HTTP.IdempotencyTTL,
	}, router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"database": handler.PingerFunc(sqlDB.PingContext),
		}),
		Tax:            handler.NewTaxHandler(taxService),
		Incentive:      handler.NewIncentiveHandler(incentiveService),
		Asset:          handler.NewAssetHandler(assetService),
		Journal:        handler.NewJournalHandler(journalService),
		Invoice:        handler.NewInvoiceHandler(invoiceService),
		Reconciliation: handler.NewReconciliationHandler(reconciliationService),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cronTrigger != nil {
		if err := cronTrigger.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping depreciation trigger", zap.Error(err))
		}
	}
	if depreciationScheduler != nil {
		if err := depreciationScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := dbMetrics.Unregister(); err != nil {
		log.Warn("Error unregistering database metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}
