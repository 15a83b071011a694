package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	configloader "github.com/pensieve/pensieve-doctor/internal/adapters/outbound/config"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/memoscli"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/restapi"
	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/tui"
	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func newHealthCmd() *cobra.Command {
	var (
		jsonOutput bool
		ciMode     bool
		watch      bool
		interval   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the memos service health",
		Long:  "Check the memos service process, REST API and database accessibility, and report one combined verdict.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configloader.New().Load(".")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			logger := newLogger(cmd)
			api := restapi.New(cfg.ServiceURL, cfg.APITimeout, logger)
			control := memoscli.New(cfg.MemosBin, logger)
			svc := application.NewHealthService(api, control, logger)

			if watch {
				return watchHealth(cmd, svc, interval)
			}

			status := svc.Check(cmd.Context())
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(status); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderHealthStatus(status))
			}

			if ciMode && !status.IsHealthy {
				return fmt.Errorf("memos service is unhealthy")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: exit 1 when unhealthy")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll continuously until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval for --watch")

	return cmd
}

func watchHealth(cmd *cobra.Command, svc *application.HealthService, interval time.Duration) error {
	svc.Subscribe(func(status domain.HealthStatus) {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderHealthStatus(status))
	})
	svc.Start(interval)
	defer svc.Stop()

	svc.Check(cmd.Context())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	return nil
}
