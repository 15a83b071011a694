package application_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func newMigrationFixture(t *testing.T) (*application.MigrationService, *fakeAPI, *fakeControl) {
	t.Helper()
	api := newFakeAPI()
	api.count = 500
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t), Backend: "sqlite"}
	control := newFakeControl()
	cfg := domain.DefaultConfig()
	cfg.BackupDir = filepath.Join(t.TempDir(), "backups")
	svc := application.NewMigrationService(api, control, nil, cfg, nil)
	return svc, api, control
}

func TestMigrationService_CollectMetrics(t *testing.T) {
	svc, api, _ := newMigrationFixture(t)
	api.count = 42

	metrics, err := svc.CollectMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), metrics.EntityCount)
	assert.Greater(t, metrics.DataSizeMB, 0.0)
}

func TestMigrationService_AssessReady(t *testing.T) {
	svc, _, _ := newMigrationFixture(t)

	r, err := svc.AssessReadiness(context.Background())
	require.NoError(t, err)

	assert.True(t, r.Ready)
	assert.Empty(t, r.Blockers)
	assert.Equal(t, domain.BackendSQLite, r.Recommended)
	assert.Equal(t, domain.RiskLow, r.Risk)
}

func TestMigrationService_AssessBlockedWhenMetricsUnavailable(t *testing.T) {
	svc, api, _ := newMigrationFixture(t)
	api.countErr = &domain.APIError{StatusCode: 503, Endpoint: "/api/entities/count", Message: "down"}
	api.framesErr = api.countErr

	r, err := svc.AssessReadiness(context.Background())
	require.NoError(t, err)

	assert.False(t, r.Ready)
	assert.NotEmpty(t, r.Blockers)
}

func TestMigrationService_BuildPlanPgvectorHasExtensionStep(t *testing.T) {
	svc, _, _ := newMigrationFixture(t)
	metrics := domain.BackendMetrics{EntityCount: 2_000_000}

	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPgvector, metrics)

	kinds := make([]domain.StepKind, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		kinds = append(kinds, s.Kind)
	}
	assert.Contains(t, kinds, domain.StepInstallPgvector)
	assert.Equal(t, domain.RiskHigh, plan.Risk)
	assert.NotEmpty(t, plan.ID)
	require.NotEmpty(t, plan.RollbackSteps)
	assert.Equal(t, domain.StepStopService, plan.RollbackSteps[0].Kind)
	assert.Equal(t, domain.StepRestoreBackup, plan.RollbackSteps[1].Kind)
}

func TestMigrationService_BuildPlanPostgresSkipsExtensionStep(t *testing.T) {
	svc, _, _ := newMigrationFixture(t)

	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{})

	for _, s := range plan.Steps {
		assert.NotEqual(t, domain.StepInstallPgvector, s.Kind)
	}
}

func TestMigrationService_DryRunHasNoSideEffects(t *testing.T) {
	svc, _, control := newMigrationFixture(t)
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	result := svc.Execute(context.Background(), plan, true)

	assert.Equal(t, domain.ExecutionDryRunCompleted, result.Status)
	assert.Equal(t, len(plan.Steps), result.StepsCompleted)
	assert.Empty(t, control.calls)
	for _, s := range plan.Steps {
		assert.Equal(t, domain.StepCompleted, s.Status)
	}
}

func TestMigrationService_RealExecutionCompletes(t *testing.T) {
	svc, _, control := newMigrationFixture(t)
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	result := svc.Execute(context.Background(), plan, false)

	assert.Equal(t, domain.ExecutionCompleted, result.Status)
	assert.Equal(t, len(plan.Steps), result.StepsCompleted)
	assert.Zero(t, result.StepsFailed)
	assert.Equal(t, 1, control.callCount(domain.CmdStop))
	assert.Equal(t, 1, control.callCount(domain.CmdStart))
}

func TestMigrationService_EarlyFailureSkipsRollback(t *testing.T) {
	svc, _, control := newMigrationFixture(t)
	control.failArg = "export"
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	result := svc.Execute(context.Background(), plan, false)

	assert.Equal(t, domain.ExecutionFailed, result.Status)
	assert.False(t, result.RollbackRequired)
	assert.False(t, result.RollbackPerformed)
	// Only verify and backup completed before the export failure.
	assert.Equal(t, 2, result.StepsCompleted)
}

func TestMigrationService_LateFailureTriggersRollback(t *testing.T) {
	svc, _, control := newMigrationFixture(t)
	control.failArg = "import"
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	result := svc.Execute(context.Background(), plan, false)

	assert.Equal(t, domain.ExecutionFailed, result.Status)
	assert.True(t, result.RollbackRequired)
	assert.True(t, result.RollbackPerformed)
	for _, s := range plan.RollbackSteps {
		assert.Equal(t, domain.StepCompleted, s.Status)
	}
}

func TestMigrationService_FailedStepNeverRegresses(t *testing.T) {
	svc, _, control := newMigrationFixture(t)
	control.failArg = "export"
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	svc.Execute(context.Background(), plan, false)

	var failed *domain.MigrationStep
	for i := range plan.Steps {
		if plan.Steps[i].Status == domain.StepFailed {
			failed = &plan.Steps[i]
		}
	}
	require.NotNil(t, failed)
	assert.True(t, failed.Status.Terminal())
	assert.NotEmpty(t, failed.Error)
}

func TestMigrationService_BackupCreatedDuringExecution(t *testing.T) {
	api := newFakeAPI()
	api.count = 500
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t), Backend: "sqlite"}
	cfg := domain.DefaultConfig()
	cfg.BackupDir = filepath.Join(t.TempDir(), "backups")
	svc := application.NewMigrationService(api, newFakeControl(), nil, cfg, nil)
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	result := svc.Execute(context.Background(), plan, false)
	require.Equal(t, domain.ExecutionCompleted, result.Status)

	entries, err := os.ReadDir(cfg.BackupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "memos_backup_")
}

func TestMigrationService_HistoryRecorded(t *testing.T) {
	svc, _, _ := newMigrationFixture(t)
	plan := svc.BuildPlan(domain.BackendSQLite, domain.BackendPostgreSQL, domain.BackendMetrics{EntityCount: 500})

	svc.Execute(context.Background(), plan, true)
	svc.Execute(context.Background(), plan, true)

	history := svc.History()
	assert.Len(t, history, 2)
}
