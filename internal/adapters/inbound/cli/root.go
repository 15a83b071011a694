package cli

import (
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pensieve-doctor",
		Short:         "Keep Pensieve's memos integration healthy",
		Long:          "Pensieve Doctor scans the Pensieve codebase for integration anti-patterns, checks the memos service health, plans backend migrations and maps the REST surface.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newFixCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newEndpointsCmd())
	cmd.AddCommand(newMCPCmd())
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

func newLogger(cmd *cobra.Command) hclog.Logger {
	level := hclog.Info
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "pensieve-doctor",
		Level:  level,
		Output: os.Stderr,
	})
}
