// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/crawlkit/harvester/internal/config"
	"github.com/crawlkit/harvester/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Incrementally harvests records from a rendered catalog listing.",
		Long: `harvester accumulates a target number of unique records from a
JavaScript-rendered, infinitely-scrolling catalog into an append-only
journal. The journal doubles as resume state, so a killed run can be
restarted without duplicating or re-fetching records.`,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.Init()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := logging.Init(viper.GetBool("logging.development")); err != nil {
		panic(err)
	}
	defer logging.L.Sync() //nolint:errcheck // best-effort flush

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
