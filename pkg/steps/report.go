package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/systemstart/seqflow/pkg/config"
)

const (
	MetricsReportID = "Misc.MetricsReport"

	MetricReportedMetrics = "misc__reported_metrics__count"

	defaultReportTemplate = `# Metrics
{{ range $name := keys .Metrics | sortAlpha }}- {{ $name }}: {{ index $.Metrics $name }}
{{ end }}`
)

var metricsReportVars = []config.Variable{
	{
		Name:        "METRICS_REPORT_TEMPLATE",
		Type:        config.TypeString,
		Default:     defaultReportTemplate,
		Description: "Template used to render the metrics report. Sprig functions are available.",
		Raw:         true,
	},
	{
		Name:        "METRICS_REPORT_FILE",
		Type:        config.TypeString,
		Default:     "metrics.md",
		Description: "Report file name inside the step directory.",
	},
}

type metricsReportStep struct{}

// NewMetricsReportStep creates the step that renders the metrics gathered so
// far into a report file.
func NewMetricsReportStep() Step {
	return metricsReportStep{}
}

func (metricsReportStep) ID() string                    { return MetricsReportID }
func (metricsReportStep) ConfigVars() []config.Variable { return metricsReportVars }

func (s metricsReportStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	text := sctx.Config.String("METRICS_REPORT_TEMPLATE")
	if text == "" {
		text = defaultReportTemplate
	}

	tmpl, err := template.New(s.ID()).Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData(sctx)); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	result := &StepResult{
		Updates: map[string]any{"metrics_report": buf.String()},
		Metrics: map[string]any{MetricReportedMetrics: len(sctx.State.Metrics)},
	}

	if sctx.WorkDir == "" {
		return result, nil
	}

	name := sctx.Config.String("METRICS_REPORT_FILE")
	if name == "" {
		name = "metrics.md"
	}
	outPath := filepath.Join(sctx.WorkDir, name)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}

	logger(sctx).Info("metrics report written", "step", sctx.ID, "output", outPath)
	result.Updates["metrics_report_file"] = outPath
	return result, nil
}
