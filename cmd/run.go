package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/actsched/app"
	"github.com/kilianp07/actsched/core/batch"
	coremon "github.com/kilianp07/actsched/core/monitoring"
	"github.com/kilianp07/actsched/infra/logger"
	"github.com/kilianp07/actsched/infra/monitoring"
	"github.com/kilianp07/actsched/pkg/export"
	"github.com/kilianp07/actsched/scenario"
)

var (
	outputFormat string
	holdMetrics  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve every person of a scenario",
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, csv or matsim")
	runCmd.Flags().BoolVar(&holdMetrics, "hold", false, "keep serving metrics after the batch until interrupted")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	if err := requireScenario(); err != nil {
		return err
	}
	switch outputFormat {
	case "table", "json", "csv", "matsim":
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	defer coremon.Flush(2 * time.Second)

	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	res, runErr := svc.Run(ctx, scenarioPath)
	if res != nil {
		if err := writeResult(cmd.OutOrStdout(), res, outputFormat, scenarioPath); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if holdMetrics && cfg.Metrics.PrometheusPort != "" {
		<-ctx.Done()
	}
	return nil
}

func writeResult(w io.Writer, res *batch.Result, format, path string) error {
	switch format {
	case "json":
		return export.WriteJSON(w, res)
	case "csv":
		return export.WriteCSV(w, res)
	case "matsim":
		sc, err := scenario.Load(path)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		homes := make(map[string]string, len(sc.Persons))
		for _, p := range sc.Persons {
			homes[p.ID] = p.Home
		}
		return export.WriteMATSimPlans(w, res, homes)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERSON\tACTIVITY\tLOCATION\tMODE\tSTART\tDURATION\tTRAVEL")
	for _, r := range res.Rows() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.0f\t%.0f\n",
			r.PersonID, r.ActivityID, r.Location, r.Mode, scenario.Clock(r.Start), r.Duration, r.TravelTime)
	}
	for _, id := range res.PersonIDs() {
		if j := res.Jobs[id]; j.Schedule == nil {
			fmt.Fprintf(tw, "%s\t-\t%s\t\t\t\t\n", id, j.Reason)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s: %d of %d schedules generated in %s\n", res.RunID, len(res.Succeeded()), len(res.Jobs), res.Elapsed)
	return nil
}
