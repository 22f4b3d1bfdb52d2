package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/systemstart/seqflow/pkg/config"
	"github.com/systemstart/seqflow/pkg/flow"
	"github.com/systemstart/seqflow/pkg/steps"
)

func okStep(id string) steps.Step {
	return steps.NewFuncStep(id, func(context.Context, steps.StepContext) (*steps.StepResult, error) {
		return &steps.StepResult{Metrics: map[string]any{id: 1}}, nil
	})
}

func TestObserver_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewObserver(reg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, err := flow.NewDefinition(flow.Definition{
		Steps:            []steps.Step{okStep("A"), okStep("A"), okStep("B"), okStep("C")},
		ConfigVars:       []config.Variable{config.Bool("RUN_C", false, "")},
		GatingConfigVars: map[string][]string{"C": {"RUN_C"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := flow.New(def, flow.Options{Observer: obs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.Start(context.Background(), flow.StartOptions{Skip: []string{"B"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(obs.started.WithLabelValues("A")); got != 2 {
		t.Errorf("expected 2 starts of A, got %v", got)
	}
	if got := testutil.ToFloat64(obs.finished.WithLabelValues("A", resultSuccess)); got != 2 {
		t.Errorf("expected 2 successes of A, got %v", got)
	}
	if got := testutil.ToFloat64(obs.skipped.WithLabelValues("B", string(flow.SkipListed))); got != 1 {
		t.Errorf("expected B skipped once, got %v", got)
	}
	if got := testutil.ToFloat64(obs.skipped.WithLabelValues("C", string(flow.SkipGated))); got != 1 {
		t.Errorf("expected C gated once, got %v", got)
	}
	if got := testutil.CollectAndCount(obs.duration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}

func TestObserver_Failure(t *testing.T) {
	obs, err := NewObserver(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := flow.Binding{ID: "X-1", Step: okStep("X")}
	obs.StepFinished("run", b, 0, errors.New("boom"))

	expected := `
# HELP seqflow_steps_finished_total Steps that finished executing, by result.
# TYPE seqflow_steps_finished_total counter
seqflow_steps_finished_total{result="failure",step="X"} 1
`
	if err := testutil.CollectAndCompare(obs.finished, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewObserver(reg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewObserver(reg); err == nil {
		t.Fatal("expected error registering twice")
	}
}
