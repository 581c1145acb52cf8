package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appfinance "github.com/erp/fincalc/internal/application/finance"
	"github.com/erp/fincalc/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcExecutor func(ctx context.Context, job *Job) error

func (f funcExecutor) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

func testConfig() Config {
	return Config{WorkerCount: 2, JobTimeout: time.Second, MaxRetries: 2, RetryDelay: time.Millisecond, QueueSize: 10}
}

func startScheduler(t *testing.T, cfg Config, exec JobExecutor) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_RunsSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]bool{}
	done := make(chan struct{}, 3)
	s := startScheduler(t, testConfig(), funcExecutor(func(ctx context.Context, job *Job) error {
		mu.Lock()
		seen[*job.TenantID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}))

	period := finance.MustParsePeriod("2024-05")
	for i := 0; i < 3; i++ {
		id := uuid.New()
		require.NoError(t, s.SubmitJob(NewJob(&id, period, 0)))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not executed")
		}
	}
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}

func TestScheduler_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	succeeded := make(chan *Job, 1)
	s := startScheduler(t, testConfig(), funcExecutor(func(ctx context.Context, job *Job) error {
		if attempts.Add(1) < 3 {
			return errors.New("database unavailable")
		}
		succeeded <- job
		return nil
	}))

	require.NoError(t, s.SubmitJob(NewJob(nil, finance.MustParsePeriod("2024-05"), 2)))
	select {
	case job := <-succeeded:
		assert.Equal(t, 2, job.RetryCount)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), attempts.Load())
}

func TestScheduler_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	s := startScheduler(t, testConfig(), funcExecutor(func(ctx context.Context, job *Job) error {
		attempts.Add(1)
		return errors.New("still failing")
	}))

	job := NewJob(nil, finance.MustParsePeriod("2024-05"), 1)
	require.NoError(t, s.SubmitJob(job))
	assert.Eventually(t, func() bool { return attempts.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestScheduler_JobTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.JobTimeout = 10 * time.Millisecond
	errc := make(chan error, 1)
	s := startScheduler(t, cfg, funcExecutor(func(ctx context.Context, job *Job) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	}))

	require.NoError(t, s.SubmitJob(NewJob(nil, finance.MustParsePeriod("2024-05"), 0)))
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("job context never expired")
	}
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := NewScheduler(Config{}, funcExecutor(func(context.Context, *Job) error { return nil }), nil)
	job := NewJob(nil, finance.MustParsePeriod("2024-05"), 0)

	assert.ErrorIs(t, s.SubmitJob(job), ErrSchedulerNotRunning)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.SubmitJob(job), ErrSchedulerNotRunning)
}

func TestScheduler_QueueFull(t *testing.T) {
	block := make(chan struct{})
	cfg := testConfig()
	cfg.WorkerCount = 1
	cfg.QueueSize = 1
	s := startScheduler(t, cfg, funcExecutor(func(ctx context.Context, job *Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}))
	defer close(block)

	period := finance.MustParsePeriod("2024-05")
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = s.SubmitJob(NewJob(nil, period, 0))
	}
	assert.ErrorIs(t, err, ErrJobQueueFull)
}

type MockDepreciationRunner struct {
	mock.Mock
}

func (m *MockDepreciationRunner) RunDepreciation(ctx context.Context, tenantID uuid.UUID, req appfinance.RunDepreciationRequest) (*appfinance.DepreciationRunResponse, error) {
	args := m.Called(ctx, tenantID, req)
	resp, _ := args.Get(0).(*appfinance.DepreciationRunResponse)
	return resp, args.Error(1)
}

func (m *MockDepreciationRunner) RunDepreciationForAllTenants(ctx context.Context, period finance.Period) ([]*appfinance.DepreciationRunResponse, error) {
	args := m.Called(ctx, period)
	resp, _ := args.Get(0).([]*appfinance.DepreciationRunResponse)
	return resp, args.Error(1)
}

func TestDepreciationExecutor_Execute(t *testing.T) {
	ctx := context.Background()
	period := finance.MustParsePeriod("2024-05")
	tenantID := uuid.New()

	t.Run("single tenant", func(t *testing.T) {
		runner := new(MockDepreciationRunner)
		runner.On("RunDepreciation", ctx, tenantID, appfinance.RunDepreciationRequest{Period: "2024-05"}).
			Return(&appfinance.DepreciationRunResponse{Period: "2024-05", AssetsProcessed: 4}, nil)

		require.NoError(t, NewDepreciationExecutor(runner).Execute(ctx, NewJob(&tenantID, period, 0)))
		runner.AssertExpectations(t)
	})

	t.Run("per-asset failures fail the job", func(t *testing.T) {
		runner := new(MockDepreciationRunner)
		runner.On("RunDepreciation", ctx, tenantID, mock.Anything).
			Return(&appfinance.DepreciationRunResponse{Failures: []appfinance.DepreciationFailureResponse{{AssetID: uuid.New(), Reason: "CONCURRENCY_CONFLICT"}}}, nil)

		err := NewDepreciationExecutor(runner).Execute(ctx, NewJob(&tenantID, period, 0))
		assert.ErrorIs(t, err, ErrPartialRun)
	})

	t.Run("all tenants", func(t *testing.T) {
		runner := new(MockDepreciationRunner)
		runner.On("RunDepreciationForAllTenants", ctx, period).
			Return([]*appfinance.DepreciationRunResponse{{AssetsProcessed: 1}, {AssetsProcessed: 2}}, nil)

		require.NoError(t, NewDepreciationExecutor(runner).Execute(ctx, NewJob(nil, period, 0)))
		runner.AssertNotCalled(t, "RunDepreciation", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("runner error", func(t *testing.T) {
		runner := new(MockDepreciationRunner)
		runner.On("RunDepreciationForAllTenants", ctx, period).Return(nil, errors.New("tenant lookup failed"))

		assert.Error(t, NewDepreciationExecutor(runner).Execute(ctx, NewJob(nil, period, 0)))
	})
}
