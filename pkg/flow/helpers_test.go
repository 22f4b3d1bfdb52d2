package flow

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/systemstart/seqflow/pkg/config"
	"github.com/systemstart/seqflow/pkg/steps"
)

const incrementerID = "Test.MetricIncrementer"

// incrementer returns a step that bumps the named metric by one.
func incrementer(id, counter string, vars ...config.Variable) steps.Step {
	return steps.NewFuncStep(id, func(_ context.Context, sctx steps.StepContext) (*steps.StepResult, error) {
		return &steps.StepResult{
			Metrics: map[string]any{counter: sctx.State.MetricInt(counter) + 1},
		}, nil
	}, vars...)
}

func testRegistry(t *testing.T, list ...steps.Step) *steps.Registry {
	t.Helper()
	reg := steps.NewRegistry()
	for _, s := range list {
		if err := reg.Register(s); err != nil {
			t.Fatalf("registering %s: %v", s.ID(), err)
		}
	}
	return reg
}

func mustMake(t *testing.T, reg *steps.Registry, ids ...string) *Definition {
	t.Helper()
	def, err := MakeFrom(reg, ids...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return def
}

func mustNew(t *testing.T, def *Definition, opts Options) *Flow {
	t.Helper()
	f, err := New(def, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
}

type observedEvent struct {
	kind   string
	id     string
	reason SkipReason
	err    error
}

type recordingObserver struct {
	events []observedEvent
}

func (o *recordingObserver) StepStarted(_ string, b Binding) {
	o.events = append(o.events, observedEvent{kind: "started", id: b.ID})
}

func (o *recordingObserver) StepSkipped(_ string, b Binding, reason SkipReason) {
	o.events = append(o.events, observedEvent{kind: "skipped", id: b.ID, reason: reason})
}

func (o *recordingObserver) StepFinished(_ string, b Binding, _ time.Duration, err error) {
	o.events = append(o.events, observedEvent{kind: "finished", id: b.ID, err: err})
}
