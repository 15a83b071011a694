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
	rulesloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/rules"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/selector"
	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
	"github.com/pensieve/pensieve-doctor/internal/domain/analyze"
)

func newFixCmd() *cobra.Command {
	var (
		dryRun bool
		types  []string
	)

	cmd := &cobra.Command{
		Use:   "fix [path]",
		Short: "Apply safe literal fixes for known findings",
		Long:  "Scan for fixable findings (metadata key variants, print in except handlers) and rewrite them in place. Use --dry-run to preview.",
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

			rules, err := rulesloader.New().Load(absPath)
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}

			logger := newLogger(cmd)
			store, err := cache.New(filepath.Join(absPath, cfg.CacheDir))
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}

			git := gitinfo.New()
			parallel := application.NewParallelAnalyzer(
				pyparser.New(), store, cfg.MaxWorkers, cfg.TestTimeout, logger)
			fixSvc := application.NewFixService(logger)
			scanSvc := application.NewScanService(
				selector.New(git), parallel, nil, store, git, nil, logger)

			scanReport, err := scanSvc.Scan(cmd.Context(), cfg, analyze.All(rules))
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			plan, err := fixSvc.Apply(absPath, scanReport.Findings, domain.FixOptions{
				DryRun: dryRun,
				Types:  types,
			})
			if err != nil {
				return fmt.Errorf("fix failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show fixes without applying them")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Fix only these finding types")

	return cmd
}
