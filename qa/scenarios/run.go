package scenarios

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/actsched/app"
	"github.com/kilianp07/actsched/config"
	"github.com/kilianp07/actsched/core/events"
	"github.com/kilianp07/actsched/core/model"
	"github.com/kilianp07/actsched/infra/logger"
	"github.com/kilianp07/actsched/infra/metrics"
	"github.com/kilianp07/actsched/infra/mqtt"
	"github.com/kilianp07/actsched/infra/store"
)

func RunScenario(t *testing.T, c *Case) {
	sink, err := metrics.NewPromSinkWithRegistry(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	pub := mqtt.NewMockPublisher()

	cfg := config.Default()
	cfg.Model.PenaltyShape = c.PenaltyShape
	if c.Workers > 0 {
		cfg.Batch.Workers = c.Workers
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	svc, err := app.New(cfg,
		app.WithPublisher(pub),
		app.WithStore(store.NopStore{}),
		app.WithSink(sink),
		app.WithLogger(logger.NopLogger{}),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	sc, err := c.ToModel()
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	res, err := svc.RunScenario(context.Background(), sc)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Jobs) != len(sc.Persons) {
		t.Fatalf("expected %d results, got %d", len(sc.Persons), len(res.Jobs))
	}

	published := 0
	for id, exp := range c.Expected {
		job, ok := res.Jobs[id]
		if !ok {
			t.Errorf("%s: no result", id)
			continue
		}
		want, err := parseStatus(exp.Status)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		if want != model.ReasonNone {
			if job.State != events.JobFailed || job.Reason != want {
				t.Errorf("%s: expected %s, got %s (%s)", id, want, job.State, job.Reason)
			}
			continue
		}
		if job.State != events.JobSucceeded {
			t.Errorf("%s: expected a schedule, got %s: %v", id, job.Reason, job.Err)
			continue
		}
		published++
		checkSchedule(t, id, job.Schedule, exp)
	}
	if pub.Published() != published {
		t.Errorf("expected %d published schedules, got %d", published, pub.Published())
	}
}

func checkSchedule(t *testing.T, id string, s *model.GeneratedSchedule, exp Expected) {
	t.Helper()
	got := make(map[string]model.ScheduledActivity, len(s.Activities))
	for _, a := range s.Activities {
		got[a.ActivityID] = a
	}
	for act, opt := range exp.Options {
		a, ok := got[act]
		if !ok {
			t.Errorf("%s: activity %s not scheduled", id, act)
			continue
		}
		if a.Option.String() != opt {
			t.Errorf("%s: activity %s at %s, expected %s", id, act, a.Option, opt)
		}
	}
	for act, start := range exp.Starts {
		if a, ok := got[act]; ok && math.Abs(a.Start-float64(start)) > 1e-6 {
			t.Errorf("%s: activity %s starts at %.2f, expected %s", id, act, a.Start, start)
		}
	}
	for act := range got {
		if slices.Contains(exp.Skipped, act) {
			t.Errorf("%s: activity %s should be skipped", id, act)
		}
	}
	if exp.Utility != nil && math.Abs(s.Utility-*exp.Utility) > 1e-6 {
		t.Errorf("%s: utility %.6f, expected %.6f", id, s.Utility, *exp.Utility)
	}
}
