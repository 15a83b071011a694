package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	configloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/memoscli"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/report"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/restapi"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/tui"
	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Assess, plan and execute backend migrations",
		Long:  "Move the memos service between sqlite, postgresql and pgvector backends with automatic backup and rollback.",
	}
	cmd.AddCommand(newMigrateAssessCmd())
	cmd.AddCommand(newMigratePlanCmd())
	cmd.AddCommand(newMigrateRunCmd())
	return cmd
}

func buildMigrationService(cmd *cobra.Command) (*application.MigrationService, domain.Config, error) {
	cfg, err := configloader.New().Load(".")
	if err != nil {
		return nil, domain.Config{}, fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cmd)
	api := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
	control := memoscli.New(cfg.MemosBin, logger)
	health := application.NewHealthService(api, control, logger)
	svc := application.NewMigrationService(api, control, health, cfg, logger)
	return svc, cfg, nil
}

func newMigrateAssessCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Check whether a migration can start",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := buildMigrationService(cmd)
			if err != nil {
				return err
			}

			readiness, err := svc.AssessReadiness(cmd.Context())
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(readiness)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReadiness(readiness))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output verdict as JSON")
	return cmd
}

func newMigratePlanCmd() *cobra.Command {
	var (
		jsonOutput bool
		target     string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a migration runbook without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := buildMigrationService(cmd)
			if err != nil {
				return err
			}

			metrics, err := svc.CollectMetrics(cmd.Context())
			if err != nil {
				return fmt.Errorf("collecting metrics: %w", err)
			}

			targetBackend, err := resolveTarget(target, metrics)
			if err != nil {
				return err
			}
			plan := svc.BuildPlan(domain.BackendSQLite, targetBackend, metrics)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(plan))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output plan as JSON")
	cmd.Flags().StringVar(&target, "target", "", "Target backend (postgresql, pgvector); default is the recommendation")
	return cmd
}

func newMigrateRunCmd() *cobra.Command {
	var (
		jsonOutput bool
		dryRun     bool
		target     string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := buildMigrationService(cmd)
			if err != nil {
				return err
			}

			readiness, err := svc.AssessReadiness(cmd.Context())
			if err != nil {
				return fmt.Errorf("assessment failed: %w", err)
			}
			if !dryRun && !readiness.Ready {
				return fmt.Errorf("migration blocked: %v", readiness.Blockers)
			}

			targetBackend, err := resolveTarget(target, readiness.Metrics)
			if err != nil {
				return err
			}
			if !dryRun && !yes {
				return fmt.Errorf("refusing to migrate without --yes (use --dry-run to preview)")
			}

			plan := svc.BuildPlan(domain.BackendSQLite, targetBackend, readiness.Metrics)
			result := svc.Execute(cmd.Context(), plan, dryRun)

			if !dryRun {
				writer := report.New(filepath.Join(cfg.ScanRoot, cfg.ReportDir))
				if err := writer.WriteMigrationResult(plan, result); err != nil {
					newLogger(cmd).Error("writing migration report failed", "error", err)
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderExecutionResult(plan, result))
			}

			if result.Status == domain.ExecutionFailed {
				return fmt.Errorf("migration failed: %s", result.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Simulate every step without side effects")
	cmd.Flags().StringVar(&target, "target", "", "Target backend (postgresql, pgvector); default is the recommendation")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm a real migration")
	return cmd
}

func resolveTarget(target string, metrics domain.BackendMetrics) (domain.Backend, error) {
	switch target {
	case "":
		recommended := domain.ChooseBackend(metrics)
		if recommended == domain.BackendSQLite {
			return "", fmt.Errorf("current workload fits sqlite; pass --target to migrate anyway")
		}
		return recommended, nil
	case string(domain.BackendPostgreSQL):
		return domain.BackendPostgreSQL, nil
	case string(domain.BackendPgvector):
		return domain.BackendPgvector, nil
	case string(domain.BackendSQLite):
		return "", fmt.Errorf("migrating back to sqlite is not supported")
	default:
		return "", fmt.Errorf("unknown backend %q", target)
	}
}
