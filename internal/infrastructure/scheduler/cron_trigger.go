package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants that have something to depreciate
type TenantProvider interface {
	DepreciableTenants(ctx context.Context) ([]uuid.UUID, error)
}

// CronTriggerConfig holds configuration for the monthly trigger
type CronTriggerConfig struct {
	// DepreciationDay is the day of month from which the previous month is posted
	DepreciationDay int
	// CheckInterval is how often the clock is checked
	CheckInterval time.Duration
	MaxRetries    int
}

// CronTrigger submits one depreciation job per tenant for the previous month
// once the configured day is reached. A restart later in the month triggers
// again; periods already posted are skipped by the run itself.
type CronTrigger struct {
	config         CronTriggerConfig
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger
	now            func() time.Time

	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	lastTriggered finance.Period
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, tenantProvider TenantProvider, logger *zap.Logger) *CronTrigger {
	if config.DepreciationDay < 1 {
		config.DepreciationDay = 1
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:         config,
		scheduler:      scheduler,
		tenantProvider: tenantProvider,
		logger:         logger,
		now:            time.Now,
	}
}

// Start checks immediately, then on every CheckInterval tick
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Depreciation trigger started",
		zap.Int("depreciation_day", c.config.DepreciationDay),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Depreciation trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	c.checkAndTrigger(ctx)

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// duePeriod returns the period to post at now, if any
func (c *CronTrigger) duePeriod(now time.Time) (finance.Period, bool) {
	if now.Day() < c.config.DepreciationDay {
		return finance.Period{}, false
	}
	return finance.PeriodOf(now).Previous(), true
}

func (c *CronTrigger) checkAndTrigger(ctx context.Context) {
	period, due := c.duePeriod(c.now())
	if !due {
		return
	}

	c.mu.Lock()
	if c.lastTriggered == period {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.TriggerPeriod(ctx, period); err != nil {
		c.logger.Error("Failed to trigger depreciation", zap.String("period", period.String()), zap.Error(err))
		return
	}

	c.mu.Lock()
	c.lastTriggered = period
	c.mu.Unlock()
}

// TriggerPeriod submits one job per depreciable tenant for period. Without a
// tenant provider a single all-tenants job is submitted.
func (c *CronTrigger) TriggerPeriod(ctx context.Context, period finance.Period) error {
	if c.tenantProvider == nil {
		return c.scheduler.SubmitJob(NewJob(nil, period, c.config.MaxRetries))
	}

	tenantIDs, err := c.tenantProvider.DepreciableTenants(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("Scheduling depreciation",
		zap.String("period", period.String()),
		zap.Int("tenant_count", len(tenantIDs)),
	)
	for _, tenantID := range tenantIDs {
		tid := tenantID
		if err := c.scheduler.SubmitJob(NewJob(&tid, period, c.config.MaxRetries)); err != nil {
			return err
		}
	}
	return nil
}
