package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/actsched/app"
	"github.com/kilianp07/actsched/infra/store"
	"github.com/kilianp07/actsched/scenario"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario without solving it",
	RunE:  validateScenario,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateScenario(cmd *cobra.Command, _ []string) error {
	if err := requireScenario(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	cfg.MQTT.Enabled = false
	svc, err := app.New(cfg, app.WithStore(store.NopStore{}))
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	issues := svc.Validate(sc)
	out := cmd.OutOrStdout()
	for _, is := range issues {
		fmt.Fprintf(out, "%s: %v\n", is.PersonID, is.Err)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d of %d persons have malformed inputs", len(issues), len(sc.Persons))
	}
	fmt.Fprintf(out, "scenario %q: %d persons ok\n", sc.Name, len(sc.Persons))
	return nil
}
