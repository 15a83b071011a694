package report_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/report"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func TestWriteHealthSummary(t *testing.T) {
	dir := t.TempDir()
	w := report.New(dir)

	scan := &domain.ScanReport{
		Timestamp:     time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		CommitHash:    "abc123",
		FilesAnalyzed: 7,
		CountsByType:  map[string]int{domain.FindingBareExcept: 2},
	}
	require.NoError(t, w.WriteHealthSummary("full", scan))

	data, err := os.ReadFile(filepath.Join(dir, "pensieve_health_summary.json"))
	require.NoError(t, err)

	var got report.HealthSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "full", got.Mode)
	assert.Equal(t, "abc123", got.CommitHash)
	assert.Equal(t, 7, got.FilesAnalyzed)
	assert.Equal(t, 2, got.FindingCounts[domain.FindingBareExcept])
}

func TestWriteHealthSummaryOverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()
	w := report.New(dir)

	require.NoError(t, w.WriteHealthSummary("full", &domain.ScanReport{FilesAnalyzed: 1}))
	require.NoError(t, w.WriteHealthSummary("incremental", &domain.ScanReport{FilesAnalyzed: 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "pensieve_health_summary.json"))
	require.NoError(t, err)
	var got report.HealthSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "incremental", got.Mode)
	assert.Equal(t, 2, got.FilesAnalyzed)
}

func TestLastHealthSummary(t *testing.T) {
	dir := t.TempDir()
	w := report.New(dir)

	require.NoError(t, w.WriteHealthSummary("incremental", &domain.ScanReport{
		CommitHash:    "abc123",
		FilesAnalyzed: 4,
	}))

	got, err := report.LastHealthSummary(dir)
	require.NoError(t, err)
	assert.Equal(t, "incremental", got.Mode)
	assert.Equal(t, "abc123", got.CommitHash)
	assert.Equal(t, 4, got.FilesAnalyzed)
}

func TestLastHealthSummaryMissingFile(t *testing.T) {
	_, err := report.LastHealthSummary(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteMigrationResult(t *testing.T) {
	dir := t.TempDir()
	w := report.New(dir)

	plan := &domain.MigrationPlan{ID: "p1", Source: domain.BackendSQLite, Target: domain.BackendPostgreSQL}
	result := &domain.ExecutionResult{
		PlanID:    "p1",
		Status:    domain.ExecutionCompleted,
		StartedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, w.WriteMigrationResult(plan, result))

	data, err := os.ReadFile(filepath.Join(dir, "migration_20260825_120000.json"))
	require.NoError(t, err)

	var got struct {
		Plan   *domain.MigrationPlan   `json:"plan"`
		Result *domain.ExecutionResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "p1", got.Plan.ID)
	assert.Equal(t, domain.ExecutionCompleted, got.Result.Status)
}

func TestWriteEndpointReport(t *testing.T) {
	dir := t.TempDir()
	w := report.New(dir)

	ep := &domain.EndpointInfo{Path: "/api/health", Method: "GET", Successes: 1}
	require.NoError(t, w.WriteEndpointReport(&domain.EndpointReport{
		BaseURL:    "http://localhost:8839",
		Timestamp:  time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Discovered: map[string]*domain.EndpointInfo{ep.Key(): ep},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "endpoints_20260825_120000.json"))
	require.NoError(t, err)

	var got domain.EndpointReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "http://localhost:8839", got.BaseURL)
	require.Contains(t, got.Discovered, "GET /api/health")
}

func TestWriterCreatesReportDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	w := report.New(dir)

	require.NoError(t, w.WriteHealthSummary("full", &domain.ScanReport{}))

	_, err := os.Stat(filepath.Join(dir, "pensieve_health_summary.json"))
	require.NoError(t, err)
}
