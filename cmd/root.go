package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/actsched/config"
	"github.com/kilianp07/actsched/infra/logger"
)

var (
	cfgPath      string
	scenarioPath string
)

var rootCmd = &cobra.Command{
	Use:           "actsched",
	Short:         "Daily activity schedule optimiser",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults when empty)")
	rootCmd.PersistentFlags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario file (YAML or JSON)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file, or the defaults when no file is
// given, and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requireScenario() error {
	if scenarioPath == "" {
		return fmt.Errorf("a scenario file is required (-s)")
	}
	return nil
}
