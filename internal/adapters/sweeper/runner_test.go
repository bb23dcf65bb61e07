package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/core"
	"github.com/tidyops/fieldwork/internal/domain/model"
	"github.com/tidyops/fieldwork/internal/service"
)

// sweepJobRepo stubs the job repository; only the sweep paths matter here.
type sweepJobRepo struct {
	listCalls atomic.Int64
	listErr   error
	overdue   []*model.Job
}

func (s *sweepJobRepo) Create(_ context.Context, _ *model.CreateJobRequest) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *sweepJobRepo) GetByID(_ context.Context, _ string) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *sweepJobRepo) Transition(_ context.Context, _ core.TransitionParams) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

func (s *sweepJobRepo) ListByWorkOrder(_ context.Context, _ string) ([]*model.Job, error) {
	return nil, nil
}

func (s *sweepJobRepo) ListApprovedPayable(_ context.Context, _ core.PayableJobsQuery) ([]*model.Job, error) {
	return nil, nil
}

func (s *sweepJobRepo) ListOverdueApprovals(_ context.Context, _ time.Time, _ int) ([]*model.Job, error) {
	s.listCalls.Add(1)
	return s.overdue, s.listErr
}

func (s *sweepJobRepo) FlagApproval(_ context.Context, _ core.FlagApprovalParams) (bool, error) {
	return true, nil
}

func (s *sweepJobRepo) FindMakeGoodFor(_ context.Context, _ string) (*model.Job, error) {
	return nil, nil
}

func (s *sweepJobRepo) CreateMakeGood(_ context.Context, _ core.MakeGoodParams) (*model.Job, error) {
	return nil, errors.New("not implemented")
}

type sweepSiteRepo struct{}

func (sweepSiteRepo) GetByID(_ context.Context, _ string) (*model.Site, error) {
	return &model.Site{ID: "site-1", ServiceIntervalDays: 7}, nil
}

func newSweepAutomation(t *testing.T, repo *sweepJobRepo, cfg config.AutomationConfig) *service.AutomationService {
	t.Helper()
	automation, err := service.NewAutomationService(service.AutomationServiceOptions{
		Jobs:   repo,
		Sites:  sweepSiteRepo{},
		Config: cfg,
	})
	require.NoError(t, err)
	return automation
}

func TestNewRunner_RequiresDBOrAutomation(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection is required")
}

func TestNewRunner_AcceptsInjectedAutomation(t *testing.T) {
	automation := newSweepAutomation(t, &sweepJobRepo{}, config.AutomationConfig{})

	runner, err := NewRunner(RunnerOptions{Automation: automation})
	require.NoError(t, err)
	assert.NotNil(t, runner)
}

func TestRunner_RunSweepsUntilCancelled(t *testing.T) {
	repo := &sweepJobRepo{}
	cfg := config.AutomationConfig{
		OverdueAfter:  72 * time.Hour,
		SweepInterval: 10 * time.Millisecond,
		SweepLimit:    100,
	}
	runner, err := NewRunner(RunnerOptions{
		Automation: newSweepAutomation(t, repo, cfg),
		Config:     cfg,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// Wait for the initial pass plus at least one tick.
	deadline := time.After(2 * time.Second)
	for repo.listCalls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for sweep passes")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunner_SweepFailureDoesNotStopLoop(t *testing.T) {
	repo := &sweepJobRepo{listErr: errors.New("database unavailable")}
	cfg := config.AutomationConfig{
		SweepInterval: 10 * time.Millisecond,
		SweepLimit:    100,
	}
	runner, err := NewRunner(RunnerOptions{
		Automation: newSweepAutomation(t, repo, cfg),
		Config:     cfg,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for repo.listCalls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for retried sweeps")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestRunner_DeadlineExceededPropagates(t *testing.T) {
	repo := &sweepJobRepo{}
	cfg := config.AutomationConfig{SweepInterval: 10 * time.Millisecond}
	runner, err := NewRunner(RunnerOptions{
		Automation: newSweepAutomation(t, repo, cfg),
		Config:     cfg,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = runner.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
