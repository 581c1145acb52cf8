package router

import (
	"fmt"
	"time"

	"github.com/erp/fincalc/internal/domain/shared"
	"github.com/erp/fincalc/internal/infrastructure/logger"
	"github.com/erp/fincalc/internal/interfaces/http/handler"
	"github.com/erp/fincalc/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoint handlers mounted by New
type Handlers struct {
	Health         *handler.HealthHandler
	Tax            *handler.TaxHandler
	Incentive      *handler.IncentiveHandler
	Asset          *handler.AssetHandler
	Journal        *handler.JournalHandler
	Invoice        *handler.InvoiceHandler
	Reconciliation *handler.ReconciliationHandler
}

// Config holds the middleware settings of the engine
type Config struct {
	Logger             *zap.Logger
	MaxBodySize        int64
	CORSAllowedOrigins []string
	Tracing            middleware.TracingConfig
	Tenant             middleware.TenantMiddlewareConfig
	// Meter enables HTTP metrics when set
	Meter metric.Meter
	// IdempotencyStore enables Idempotency-Key handling on mutating routes when set
	IdempotencyStore shared.IdempotencyStore
	IdempotencyTTL   time.Duration
}

// New builds the gin engine with the middleware chain and every route.
// Order matters: the request ID must exist before logging, and the tenant
// must be resolved before span attributes, metrics and idempotency keys.
func New(cfg Config, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	cors := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.CORSAllowedOrigins
	}
	engine.Use(middleware.CORSWithConfig(cors))

	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))

	tenantCfg := cfg.Tenant
	if tenantCfg.Logger == nil {
		tenantCfg.Logger = log
	}
	engine.Use(middleware.TenantMiddlewareWithConfig(tenantCfg))
	engine.Use(middleware.TracingAttributeInjector())

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	engine.Use(httpMetrics)

	if h.Health != nil {
		engine.GET("/health", h.Health.Check)
	}

	idem := middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  cfg.IdempotencyStore,
		TTL:    cfg.IdempotencyTTL,
		Logger: log,
	})

	r := NewRouter(engine)
	if h.Health != nil {
		r.Register(NewDomainGroup("health", "/health").GET("", h.Health.Check))
	}
	r.Register(NewDomainGroup("tax", "/tax").
		POST("/estimate", h.Tax.Estimate))

	r.Register(NewDomainGroup("incentives", "/incentives").
		POST("/simulate", h.Incentive.Simulate))

	r.Register(
		NewDomainGroup("assets", "/assets").Writes(idem).
			POST("", h.Asset.CreateAsset).
			GET("", h.Asset.ListAssets).
			POST("/depreciation/run", h.Asset.RunDepreciation).
			GET("/:id", h.Asset.GetAsset).
			GET("/:id/depreciation-history", h.Asset.GetDepreciationHistory).
			POST("/:id/dispose", h.Asset.DisposeAsset),

		NewDomainGroup("journal-entries", "/journal-entries").Writes(idem).
			POST("", h.Journal.CreateJournalEntry).
			GET("/:id", h.Journal.GetJournalEntry),

		NewDomainGroup("invoices", "/invoices").Writes(idem).
			POST("", h.Invoice.CreateInvoice).
			GET("", h.Invoice.ListInvoices).
			GET("/:id", h.Invoice.GetInvoice),

		NewDomainGroup("bank-reconciliation", "/bank-reconciliation").Writes(idem).
			POST("/import", h.Reconciliation.ImportTransactions).
			POST("/import/ofx", h.Reconciliation.ImportStatement).
			GET("", h.Reconciliation.ListTransactions).
			POST("/auto-match", h.Reconciliation.AutoMatch).
			POST("/:id/match", h.Reconciliation.ManualMatch).
			POST("/:id/approve", h.Reconciliation.Approve),
	)

	r.Setup()
	return engine, nil
}
