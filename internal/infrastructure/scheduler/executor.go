package scheduler

import (
	"context"
	"fmt"

	appfinance "github.com/erp/fincalc/internal/application/finance"
	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
)

// DepreciationRunner is the slice of the asset service the executor needs
type DepreciationRunner interface {
	RunDepreciation(ctx context.Context, tenantID uuid.UUID, req appfinance.RunDepreciationRequest) (*appfinance.DepreciationRunResponse, error)
	RunDepreciationForAllTenants(ctx context.Context, period finance.Period) ([]*appfinance.DepreciationRunResponse, error)
}

// DepreciationExecutor executes depreciation jobs. A run with per-asset
// failures counts as failed so the job is retried; assets already posted for
// the period are skipped on the retry.
type DepreciationExecutor struct {
	runner DepreciationRunner
}

// NewDepreciationExecutor creates a DepreciationExecutor
func NewDepreciationExecutor(runner DepreciationRunner) *DepreciationExecutor {
	return &DepreciationExecutor{runner: runner}
}

// Execute runs the job's period for its tenant, or for every tenant
func (e *DepreciationExecutor) Execute(ctx context.Context, job *Job) error {
	if job.TenantID == nil {
		results, err := e.runner.RunDepreciationForAllTenants(ctx, job.Period)
		if err != nil {
			return err
		}
		return checkFailures(results...)
	}

	result, err := e.runner.RunDepreciation(ctx, *job.TenantID, appfinance.RunDepreciationRequest{Period: job.Period.String()})
	if err != nil {
		return err
	}
	return checkFailures(result)
}

func checkFailures(results ...*appfinance.DepreciationRunResponse) error {
	failed := 0
	for _, r := range results {
		failed += len(r.Failures)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d asset(s)", ErrPartialRun, failed)
	}
	return nil
}

var _ JobExecutor = (*DepreciationExecutor)(nil)
