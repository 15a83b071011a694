package tui_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/tui"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func TestRenderScanReport_Healthy(t *testing.T) {
	out := tui.RenderScanReport(&domain.ScanReport{
		FilesAnalyzed: 12,
		Duration:      340 * time.Millisecond,
	})

	assert.Contains(t, out, "pensieve doctor")
	assert.Contains(t, out, "Integration Health Scan")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "No issues found.")
	assert.Contains(t, out, "12 analyzed")
}

func TestRenderScanReport_FindingsOrderedBySeverity(t *testing.T) {
	out := tui.RenderScanReport(&domain.ScanReport{
		FilesAnalyzed: 2,
		Findings: []domain.Finding{
			{File: "a.py", Line: 1, Type: domain.FindingHardcodedPort, Severity: domain.SeverityInfo, Message: "info finding"},
			{File: "b.py", Line: 2, Type: domain.FindingBareExcept, Severity: domain.SeverityError, Message: "error finding"},
		},
	})

	assert.Contains(t, out, "1 critical issues")
	assert.Less(t, strings.Index(out, "error finding"), strings.Index(out, "info finding"))
}

func TestRenderScanReport_SuggestedFixShown(t *testing.T) {
	out := tui.RenderScanReport(&domain.ScanReport{
		Findings: []domain.Finding{{
			File: "capture.py", Line: 3, Type: domain.FindingMetadataKeyVariant,
			Severity: domain.SeverityWarning, Message: "variant key",
			SuggestedFix: "active_window",
		}},
	})

	assert.Contains(t, out, "fix:")
	assert.Contains(t, out, "active_window")
	assert.Contains(t, out, "capture.py:3")
}

func TestRenderScanReport_CommitShortened(t *testing.T) {
	out := tui.RenderScanReport(&domain.ScanReport{
		CommitHash: "0123456789abcdef",
	})

	assert.Contains(t, out, "0123456")
	assert.NotContains(t, out, "0123456789abcdef")
}

func TestRenderScanReport_AutoFixFooter(t *testing.T) {
	out := tui.RenderScanReport(&domain.ScanReport{
		AutoFixEnabled: true,
		FixesApplied:   4,
	})

	assert.Contains(t, out, "4 fixes applied automatically")
}

func TestRenderHealthStatus(t *testing.T) {
	out := tui.RenderHealthStatus(domain.HealthStatus{
		IsHealthy:          true,
		APIResponding:      true,
		ServiceRunning:     true,
		DatabaseAccessible: true,
		ResponseTimeMS:     42,
		LastCheck:          time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
	})

	assert.Contains(t, out, "Service Health")
	assert.Contains(t, out, "healthy")
	assert.Contains(t, out, "API responding")
	assert.Contains(t, out, "42 ms")
	assert.Contains(t, out, "09:30:00")
}

func TestRenderHealthStatus_Warnings(t *testing.T) {
	out := tui.RenderHealthStatus(domain.HealthStatus{
		Warnings: []string{"api health endpoint unreachable"},
	})

	assert.Contains(t, out, "unhealthy")
	assert.Contains(t, out, "Warnings")
	assert.Contains(t, out, "api health endpoint unreachable")
}
