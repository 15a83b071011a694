package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	configloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/report"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/restapi"
	rulesloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/rules"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/tui"
	"github.com/pensieve/pensieve-doctor/internal/application"
)

func newEndpointsCmd() *cobra.Command {
	var (
		jsonOutput bool
		deepScan   bool
		saveReport bool
	)

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Discover and grade the memos REST surface",
		Long:  "Probe the memos service for available REST endpoints, measure their availability, and grade the functional coverage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configloader.New().Load(".")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			rules, err := rulesloader.New().Load(".")
			if err != nil {
				return fmt.Errorf("loading rules: %w", err)
			}

			logger := newLogger(cmd)
			prober := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
			svc := application.NewEndpointService(prober, cfg.ServiceURL, rules, logger)

			endpointReport, err := svc.Discover(cmd.Context(), deepScan)
			if err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}

			if saveReport {
				writer := report.New(filepath.Join(cfg.ScanRoot, cfg.ReportDir))
				if err := writer.WriteEndpointReport(endpointReport); err != nil {
					logger.Error("writing endpoint report failed", "error", err)
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(endpointReport)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderEndpointReport(endpointReport))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output report as JSON")
	cmd.Flags().BoolVar(&deepScan, "deep", false, "Probe the extended path cross product")
	cmd.Flags().BoolVar(&saveReport, "save", false, "Write a timestamped JSON report")

	return cmd
}
