package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/cache"
	configloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/gitinfo"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/pyparser"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/report"
	rulesloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/rules"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/selector"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/tui"
	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
	"github.com/pensieve/pensieve-doctor/internal/domain/analyze"
)

func newScanCmd() *cobra.Command {
	var (
		jsonOutput  bool
		ciMode      bool
		autoFix     bool
		since       string
		maxFiles    int
		maxFindings int
		analyzer    string
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan the codebase for integration anti-patterns",
		Long:  "Run the database, error-handling, hardcoded-config and integration analyzers over the Python sources and report findings.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			cfg, err := configloader.New().Load(absPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg.ScanRoot = absPath
			if autoFix {
				cfg.AutoFix = true
			}
			if since != "" {
				cfg.SinceCommit = since
			}
			if maxFiles > 0 {
				cfg.MaxFiles = maxFiles
			}
			if cfg.TestIncremental && cfg.SinceCommit == "" {
				if last, err := report.LastHealthSummary(filepath.Join(absPath, cfg.ReportDir)); err == nil && last.CommitHash != "" {
					cfg.SinceCommit = last.CommitHash
				}
			}

			rules, err := rulesloader.New().Load(absPath)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}

			analyzers := analyze.All(rules)
			if analyzer != "" {
				one := analyze.ByName(rules, analyzer)
				if one == nil {
					return fmt.Errorf("unknown analyzer %q", analyzer)
				}
				analyzers = []domain.Analyzer{one}
			}

			logger := newLogger(cmd)
			store, err := cache.New(filepath.Join(absPath, cfg.CacheDir))
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}

			git := gitinfo.New()
			parallel := application.NewParallelAnalyzer(
				pyparser.New(), store, cfg.MaxWorkers, cfg.TestTimeout, logger)
			svc := application.NewScanService(
				selector.New(git),
				parallel,
				application.NewFixService(logger),
				store,
				git,
				report.New(filepath.Join(absPath, cfg.ReportDir)),
				logger,
			)

			scanReport, err := svc.Scan(cmd.Context(), cfg, analyzers)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(scanReport); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderScanReport(scanReport))
			}

			if ciMode && len(scanReport.Findings) > maxFindings {
				return &findingsError{count: len(scanReport.Findings), budget: maxFindings}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output report as JSON")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: exit with the finding count (capped at 125) when it exceeds --max-findings")
	cmd.Flags().BoolVar(&autoFix, "fix", false, "Apply safe fixes automatically")
	cmd.Flags().StringVar(&since, "since", "", "Only scan files changed since this commit")
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "Override the file budget")
	cmd.Flags().IntVar(&maxFindings, "max-findings", 0, "Findings tolerated in CI mode before a non-zero exit")
	cmd.Flags().StringVar(&analyzer, "analyzer", "", "Run only one analyzer (database, errors, config, integration)")

	return cmd
}
