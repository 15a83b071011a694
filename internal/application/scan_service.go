package application

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// cacheMaxAge is how long cache entries survive before Sweep removes them.
const cacheMaxAge = 7 * 24 * time.Hour

// ScanService orchestrates a full health scan: select files, run analyzers
// in parallel, aggregate findings, optionally auto-fix, write the summary.
type ScanService struct {
	selector domain.FileSelector
	parallel *ParallelAnalyzer
	fixer    *FixService
	cache    domain.AnalysisCache
	git      domain.GitInfo
	reporter ReportWriter
	logger   hclog.Logger
}

// ReportWriter persists scan artifacts.
type ReportWriter interface {
	WriteHealthSummary(mode string, report *domain.ScanReport) error
}

func NewScanService(
	selector domain.FileSelector,
	parallel *ParallelAnalyzer,
	fixer *FixService,
	cache domain.AnalysisCache,
	git domain.GitInfo,
	reporter ReportWriter,
	logger hclog.Logger,
) *ScanService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ScanService{
		selector: selector, parallel: parallel, fixer: fixer,
		cache: cache, git: git, reporter: reporter, logger: logger,
	}
}

// Scan runs the full analysis pipeline under cfg and returns the report.
func (s *ScanService) Scan(ctx context.Context, cfg domain.Config, analyzers []domain.Analyzer) (*domain.ScanReport, error) {
	start := time.Now()

	selection, err := s.selector.Select(cfg)
	if err != nil {
		return nil, fmt.Errorf("selecting files: %w", err)
	}
	s.logger.Info("files selected",
		"count", len(selection.Files), "found", selection.TotalFound, "truncated", selection.Truncated)

	// Age out stale entries before any analyzer consults the cache.
	if s.cache != nil {
		if err := s.cache.Sweep(cacheMaxAge); err != nil {
			s.logger.Debug("cache sweep failed", "error", err)
		}
	}

	results, err := s.parallel.AnalyzeFiles(ctx, selection.Files, analyzers)
	if err != nil {
		return nil, fmt.Errorf("analyzing files: %w", err)
	}

	report := &domain.ScanReport{
		Root:           cfg.ScanRoot,
		Timestamp:      start,
		AutoFixEnabled: cfg.AutoFix,
		CountsByType:   map[string]int{},
	}
	if s.git != nil && s.git.IsGitRepo(cfg.ScanRoot) {
		if hash, err := s.git.CommitHash(cfg.ScanRoot); err == nil {
			report.CommitHash = hash
		}
	}

	for _, r := range results {
		switch {
		case r.TimedOut:
			report.FilesTimedOut++
		default:
			report.FilesAnalyzed++
		}
		if r.Cached {
			report.CacheHits++
		}
		report.Findings = append(report.Findings, r.Findings...)
		for _, f := range r.Findings {
			report.CountsByType[f.Type]++
		}
	}
	report.FilesSkipped = selection.TotalFound - len(selection.Files)

	if cfg.AutoFix && s.fixer != nil {
		plan, err := s.fixer.Apply(cfg.ScanRoot, report.Findings, domain.FixOptions{})
		if err != nil {
			s.logger.Error("auto-fix failed", "error", err)
		} else {
			report.FixesApplied = len(plan.Applied)
		}
	}

	report.Duration = time.Since(start)

	if s.reporter != nil {
		mode := "full"
		if cfg.SinceCommit != "" {
			mode = "incremental"
		}
		if err := s.reporter.WriteHealthSummary(mode, report); err != nil {
			s.logger.Error("writing health summary failed", "error", err)
		}
	}

	s.logger.Info("scan finished",
		"files", report.FilesAnalyzed, "findings", len(report.Findings),
		"timed_out", report.FilesTimedOut, "duration", report.Duration)
	return report, nil
}
