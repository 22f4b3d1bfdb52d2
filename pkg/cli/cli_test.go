package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/systemstart/seqflow/pkg/flow"
	"github.com/systemstart/seqflow/pkg/steps"
	"gopkg.in/yaml.v3"
)

const testFlow = `
name: Counting
steps:
  - Test.Increment
  - Test.Increment
  - Test.Increment
config_vars:
  - name: RUN_LAST
    type: bool
    default: true
gating_config_vars:
  "Test.Increment-2": [RUN_LAST]
`

func increment(id, counter string) steps.Step {
	return steps.NewFuncStep(id, func(_ context.Context, sctx steps.StepContext) (*steps.StepResult, error) {
		return &steps.StepResult{
			Metrics: map[string]any{counter: sctx.State.MetricInt(counter) + 1},
		}, nil
	})
}

func testRegistry(t *testing.T) *steps.Registry {
	t.Helper()
	reg := steps.NewRegistry()
	reg.MustRegister(increment("Test.Increment", "counter"), increment("Test.Other", "other"))
	if err := steps.RegisterBuiltins(reg); err != nil {
		t.Fatal(err)
	}
	return reg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	f := filepath.Join(dir, name)
	if err := os.WriteFile(f, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return f
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(testRegistry(t), &out)
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"seqflow", "--log-level", "error"}, args...))
	return out.String(), err
}

func decodeYAML(t *testing.T, s string, v any) {
	t.Helper()
	if err := yaml.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("invalid YAML output: %v\n%s", err, s)
	}
}

func TestRun_PrintsMetrics(t *testing.T) {
	dir := t.TempDir()
	flowFile := writeFile(t, dir, "counting.flow.yaml", testFlow)

	out, err := runApp(t, "run", "--run-tag", "t1", flowFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var metrics map[string]int
	decodeYAML(t, out, &metrics)
	if metrics["counter"] != 3 {
		t.Fatalf("expected counter 3, got %v", metrics)
	}

	final := filepath.Join(dir, "runs", "t1", "final", "state.yaml")
	if _, err := os.Stat(final); err != nil {
		t.Errorf("final state not written: %v", err)
	}
}

func TestRun_Options(t *testing.T) {
	dir := t.TempDir()
	flowFile := writeFile(t, dir, "counting.flow.yaml", testFlow)
	cfgFile := writeFile(t, dir, "off.yaml", "RUN_LAST: false\n")

	tests := []struct {
		name string
		args []string
		want map[string]int
	}{
		{"config file gates", []string{"--config", cfgFile}, map[string]int{"counter": 2}},
		{"set overrides file", []string{"--config", cfgFile, "--set", "RUN_LAST=true"}, map[string]int{"counter": 3}},
		{"window", []string{"--from", "*-1", "--to", "*-1"}, map[string]int{"counter": 1}},
		{"skip", []string{"--skip", "test.increment"}, map[string]int{"counter": 2}},
		{"skip alternatives", []string{"--skip", "{test.increment,*-2}"}, map[string]int{"counter": 1}},
		{
			"substitute",
			[]string{"--substitute", "Test.Increment-1=Test.Other", "--substitute", "+Test.Increment-2=Test.Other"},
			map[string]int{"counter": 2, "other": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"run", "--design-dir", t.TempDir()}, tt.args...)
			out, err := runApp(t, append(args, flowFile)...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var metrics map[string]int
			decodeYAML(t, out, &metrics)
			if len(metrics) != len(tt.want) {
				t.Fatalf("metrics = %v, want %v", metrics, tt.want)
			}
			for k, v := range tt.want {
				if metrics[k] != v {
					t.Errorf("metric %s = %d, want %d", k, metrics[k], v)
				}
			}
		})
	}
}

func TestRun_InitialStateAndTextfile(t *testing.T) {
	dir := t.TempDir()
	flowFile := writeFile(t, dir, "counting.flow.yaml", testFlow)

	if _, err := runApp(t, "run", "--run-tag", "first", flowFile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	textfile := filepath.Join(dir, "steps.prom")
	out, err := runApp(t, "run",
		"--run-tag", "second",
		"--initial-state", filepath.Join(dir, "runs", "first", "final"),
		"--metrics-textfile", textfile,
		flowFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var metrics map[string]int
	decodeYAML(t, out, &metrics)
	if metrics["counter"] != 6 {
		t.Errorf("expected counter 6, got %v", metrics)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `seqflow_steps_started_total{step="Test.Increment"} 3`) {
		t.Errorf("unexpected textfile:\n%s", data)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	flowFile := writeFile(t, dir, "counting.flow.yaml", testFlow)
	badFlow := writeFile(t, dir, "bad.flow.yaml", "steps: [Test.Missing]\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no flow", []string{"run"}, "flow file or flow name is required"},
		{"unknown step", []string{"run", badFlow}, `no step found with id "Test.Missing"`},
		{"bad substitute", []string{"run", "--substitute", "Test.Increment", flowFile}, "expected KEY=ID"},
		{"bad set", []string{"run", "--set", "=x", flowFile}, "expected KEY=VALUE"},
		{"missing anchor", []string{"run", "--substitute", "Test.Nope=", flowFile}, "could not remove"},
		{"unknown from", []string{"run", "--from", "Test.Nope", flowFile}, "no step(s) with ID"},
		{"unknown flow name", []string{"--flows-dir", dir, "run", "nope"}, `no flow named "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestShow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.flow.yaml", testFlow)

	out, err := runApp(t, "--flows-dir", dir, "show", "--substitute", "Test.Increment-1=", "counting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summary flowSummary
	decodeYAML(t, out, &summary)
	if summary.Name != "Counting'" {
		t.Errorf("unexpected name %q", summary.Name)
	}
	want := []string{"Test.Increment", "Test.Increment-1"}
	if strings.Join(summary.Steps, ",") != strings.Join(want, ",") {
		t.Errorf("steps = %v, want %v", summary.Steps, want)
	}
}

func TestSteps(t *testing.T) {
	out, err := runApp(t, "steps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summaries []stepSummary
	decodeYAML(t, out, &summaries)

	var ids []string
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	want := []string{steps.MetricsReportID, steps.RenderTemplatesID, steps.RunCommandID, "Test.Increment", "Test.Other"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if len(summaries[0].ConfigVars) == 0 {
		t.Error("expected config vars for the metrics report step")
	}
}

func TestFlows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counting.flow.yaml", testFlow)

	out, err := runApp(t, "flows", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var summaries []flowSummary
	decodeYAML(t, out, &summaries)
	if len(summaries) != 1 || summaries[0].Name != "Counting" || len(summaries[0].Steps) != 3 {
		t.Fatalf("unexpected flows: %+v", summaries)
	}

	if _, err := runApp(t, "flows", t.TempDir()); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestParseSubstitutions(t *testing.T) {
	subs, err := parseSubstitutions([]string{"A=B", "-A=C", "A-1="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := flow.Substitutions{flow.ReplaceID("A", "B"), flow.ReplaceID("-A", "C"), flow.Remove("A-1")}
	if len(subs) != len(want) {
		t.Fatalf("got %d directives, want %d", len(subs), len(want))
	}
	for i := range want {
		if subs[i].Key != want[i].Key || subs[i].StepID != want[i].StepID {
			t.Errorf("directive %d = %+v, want %+v", i, subs[i], want[i])
		}
	}

	for _, bad := range []string{"A", "+=B", "=B"} {
		if _, err := parseSubstitutions([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
