package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

const healthSummaryFile = "pensieve_health_summary.json"

// HealthSummary is the JSON artifact written after every scan, consumed by
// CI and the dashboards.
type HealthSummary struct {
	Timestamp      time.Time      `json:"timestamp"`
	Mode           string         `json:"mode"`
	CommitHash     string         `json:"commit_hash,omitempty"`
	FilesAnalyzed  int            `json:"files_analyzed"`
	AutoFixEnabled bool           `json:"auto_fix_enabled"`
	FixesApplied   int            `json:"fixes_applied"`
	FindingCounts  map[string]int `json:"finding_counts"`
}

// Writer persists JSON artifacts under a report directory.
type Writer struct {
	dir string
}

func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteHealthSummary writes pensieve_health_summary.json, overwriting any
// previous run.
func (w *Writer) WriteHealthSummary(mode string, report *domain.ScanReport) error {
	summary := HealthSummary{
		Timestamp:      report.Timestamp,
		Mode:           mode,
		CommitHash:     report.CommitHash,
		FilesAnalyzed:  report.FilesAnalyzed,
		AutoFixEnabled: report.AutoFixEnabled,
		FixesApplied:   report.FixesApplied,
		FindingCounts:  report.CountsByType,
	}
	return w.writeJSON(healthSummaryFile, summary)
}

// LastHealthSummary reads the summary left by the previous scan in dir.
// Incremental runs use its commit hash as the diff base.
func LastHealthSummary(dir string) (*HealthSummary, error) {
	data, err := os.ReadFile(filepath.Join(dir, healthSummaryFile))
	if err != nil {
		return nil, err
	}
	var summary HealthSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", healthSummaryFile, err)
	}
	return &summary, nil
}

// WriteMigrationResult writes a timestamped migration report.
func (w *Writer) WriteMigrationResult(plan *domain.MigrationPlan, result *domain.ExecutionResult) error {
	name := fmt.Sprintf("migration_%s.json", result.StartedAt.Format("20060102_150405"))
	return w.writeJSON(name, struct {
		Plan   *domain.MigrationPlan   `json:"plan"`
		Result *domain.ExecutionResult `json:"result"`
	}{plan, result})
}

// WriteEndpointReport writes a timestamped endpoint discovery report.
func (w *Writer) WriteEndpointReport(report *domain.EndpointReport) error {
	name := fmt.Sprintf("endpoints_%s.json", report.Timestamp.Format("20060102_150405"))
	return w.writeJSON(name, report)
}

func (w *Writer) writeJSON(name string, v any) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
