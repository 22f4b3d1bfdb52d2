package steps

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/systemstart/seqflow/pkg/config"
)

const (
	RenderTemplatesID = "Misc.RenderTemplates"

	templateSuffix = ".tmpl"

	MetricTemplatesRendered = "misc__templates_rendered__count"
)

var renderTemplatesVars = []config.Variable{
	{
		Name:        "TEMPLATE_FILES",
		Type:        config.TypeList,
		Default:     []string{"**/*" + templateSuffix},
		Description: "Glob patterns, relative to the design directory, of files to render.",
	},
	{
		Name:        "TEMPLATE_EXCLUDE",
		Type:        config.TypeList,
		Description: "Glob patterns of files to leave out even when TEMPLATE_FILES matches them.",
	},
}

type renderTemplatesStep struct{}

// NewRenderTemplatesStep creates the step that renders design-directory
// templates with the flow configuration and current metrics as data.
// Rendered files land in the step directory with the .tmpl suffix removed.
func NewRenderTemplatesStep() Step {
	return renderTemplatesStep{}
}

func (renderTemplatesStep) ID() string                    { return RenderTemplatesID }
func (renderTemplatesStep) ConfigVars() []config.Variable { return renderTemplatesVars }

func (s renderTemplatesStep) Run(_ context.Context, sctx StepContext) (*StepResult, error) {
	if sctx.DesignDir == "" {
		return nil, fmt.Errorf("%s needs a design directory", s.ID())
	}
	outDir := sctx.WorkDir
	if outDir == "" {
		outDir = sctx.DesignDir
	}

	files, err := filterFiles(os.DirFS(sctx.DesignDir), sctx.Config.Strings("TEMPLATE_FILES"), sctx.Config.Strings("TEMPLATE_EXCLUDE"))
	if err != nil {
		return nil, fmt.Errorf("filtering files: %w", err)
	}

	logger(sctx).Info("rendering templates", "step", sctx.ID, "count", len(files))

	data := templateData(sctx)
	rendered := make([]string, 0, len(files))
	for _, file := range files {
		out, err := processFile(sctx.DesignDir, outDir, file, data)
		if err != nil {
			return nil, fmt.Errorf("processing %s: %w", file, err)
		}
		rendered = append(rendered, out)
	}

	return &StepResult{
		Updates: map[string]any{"rendered_templates": rendered},
		Metrics: map[string]any{MetricTemplatesRendered: len(rendered)},
	}, nil
}

// templateData exposes config values at the top level next to Metrics and Inputs.
func templateData(sctx StepContext) map[string]any {
	data := make(map[string]any, len(sctx.Config)+3)
	maps.Copy(data, sctx.Config)
	data["Metrics"] = sctx.State.Metrics
	data["Inputs"] = sctx.State.Inputs
	data["StepID"] = sctx.ID
	return data
}

func globFS(fsys fs.FS, patterns []string) ([]string, error) {
	var result []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		result = append(result, matches...)
	}
	slices.Sort(result)
	result = slices.Compact(result)
	return result, nil
}

func filterFiles(fsys fs.FS, include, exclude []string) ([]string, error) {
	included, err := globFS(fsys, include)
	if err != nil {
		return nil, fmt.Errorf("include filter: %w", err)
	}

	excluded, err := globFS(fsys, exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude filter: %w", err)
	}

	var result []string
	for _, f := range included {
		info, err := fs.Stat(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f, err)
		}
		if info.IsDir() || slices.Contains(excluded, f) {
			continue
		}
		result = append(result, f)
	}
	return result, nil
}

func processFile(srcDir, outDir, filename string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(srcDir, filename))
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	tmpl, err := template.New(filepath.Base(filename)).Funcs(sprig.FuncMap()).Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	outPath := filepath.Join(outDir, strings.TrimSuffix(filename, templateSuffix))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return "", fmt.Errorf("creating parent directories: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}

	execErr := tmpl.Execute(out, data)

	if closeErr := out.Close(); closeErr != nil {
		if execErr != nil {
			return "", fmt.Errorf("executing template: %w", execErr)
		}
		return "", fmt.Errorf("closing output file: %w", closeErr)
	}
	if execErr != nil {
		return "", fmt.Errorf("executing template: %w", execErr)
	}

	return outPath, nil
}
