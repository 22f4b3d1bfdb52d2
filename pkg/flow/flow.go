package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/systemstart/seqflow/pkg/config"
	"github.com/systemstart/seqflow/pkg/steps"
)

const (
	runsDirname  = "runs"
	finalDirname = "final"
)

// Options binds a Definition to one run.
type Options struct {
	Config     map[string]any
	DesignDir  string
	Process    steps.Process
	Substitute Substitutions

	// Registry resolves string replacements in Substitute. Defaults to steps.Default().
	Registry *steps.Registry

	// RunTag names the run directory. A UUID is used when empty.
	RunTag string

	Logger   *slog.Logger
	Observer Observer
}

// Flow is a Definition bound to a configuration, ready to run.
type Flow struct {
	def       *Definition
	bindings  []Binding
	raw       map[string]any
	config    config.Config
	designDir string
	process   steps.Process
	runTag    string
	runDir    string
	logger    *slog.Logger
	observer  Observer
}

// New instantiates def. Substitutions are applied and runtime ids assigned
// before New returns, so every structural error surfaces here. Variables
// declared by steps are resolved when the step runs, so steps that never
// run do not need valid values.
func New(def *Definition, opts Options) (*Flow, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidFlow)
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	bindings := def.Bindings()
	if len(opts.Substitute) > 0 {
		var err error
		bindings, err = substitute(bindings, opts.Substitute, opts.Registry)
		if err != nil {
			return nil, fmt.Errorf("substituting steps in flow %q: %w", def.Name, err)
		}
	}

	raw := config.Merge(processConfig(opts.DesignDir, opts.Process), opts.Config)
	cfg, err := config.Resolve(def.ConfigVars, raw)
	if err != nil {
		return nil, fmt.Errorf("resolving config for flow %q: %w", def.Name, err)
	}
	// Step variables are only consulted here for their Raw flag.
	if err := config.Interpolate(cfg, allConfigVars(def.ConfigVars, bindings)); err != nil {
		return nil, fmt.Errorf("resolving config for flow %q: %w", def.Name, err)
	}

	f := &Flow{
		def:       def,
		bindings:  bindings,
		raw:       raw,
		config:    cfg,
		designDir: opts.DesignDir,
		process:   opts.Process,
		runTag:    opts.RunTag,
		logger:    opts.Logger,
		observer:  opts.Observer,
	}
	if f.runTag == "" {
		f.runTag = uuid.NewString()
	}
	if f.designDir != "" {
		f.runDir = filepath.Join(f.designDir, runsDirname, f.runTag)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	f.logger = f.logger.With("flow", def.Name, "run", f.runTag)
	if f.observer == nil {
		f.observer = nopObserver{}
	}
	return f, nil
}

// processConfig exposes the construction parameters as config values.
// Explicit config entries override them.
func processConfig(designDir string, p steps.Process) map[string]any {
	values := make(map[string]any)
	for key, value := range map[string]string{
		"DESIGN_DIR": designDir,
		"PDK":        p.PDK,
		"SCL":        p.SCL,
		"PDK_ROOT":   p.PDKRoot,
	} {
		if value != "" {
			values[key] = value
		}
	}
	return values
}

func resolveConfig(vars []config.Variable, raw map[string]any) (config.Config, error) {
	cfg, err := config.Resolve(vars, raw)
	if err != nil {
		return nil, err
	}
	if err := config.Interpolate(cfg, vars); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Name returns the definition name.
func (f *Flow) Name() string { return f.def.Name }

// Steps returns the final step list.
func (f *Flow) Steps() []Binding { return slices.Clone(f.bindings) }

// IDs returns the runtime ids of the final step list.
func (f *Flow) IDs() []string { return ids(f.bindings) }

// Config returns a copy of the flow-level configuration: the raw values with
// the flow's own variables resolved. Step variables are resolved per step.
func (f *Flow) Config() config.Config { return maps.Clone(f.config) }

// RunTag returns the tag identifying this run.
func (f *Flow) RunTag() string { return f.runTag }

// RunDir returns the run directory, or "" when the flow has no design directory.
func (f *Flow) RunDir() string { return f.runDir }

// Start runs the flow from an empty State and returns the final State.
func (f *Flow) Start(ctx context.Context, opts StartOptions) (steps.State, error) {
	state, _, err := f.Run(ctx, steps.NewState(), opts)
	return state, err
}

// Run executes the selected steps in order starting from initial and returns
// the final State together with the steps that ran. An error returned by a
// step is returned as is and stops the run. Errors wrapping steps.ErrDeferred
// are collected instead; the remaining steps still run and Run returns the
// final State with all deferred errors joined.
func (f *Flow) Run(ctx context.Context, initial steps.State, opts StartOptions) (steps.State, []Binding, error) {
	planned, err := plan(f.bindings, opts, f.def.GatingConfigVars, f.config)
	if err != nil {
		return steps.State{}, nil, err
	}

	f.logger.Info("starting flow", "steps", len(planned))

	state := initial.Apply(nil)
	var (
		executed []Binding
		deferred []error
	)
	for _, p := range planned {
		if p.skip != "" {
			f.logSkip(p)
			f.observer.StepSkipped(f.runTag, p.Binding, p.skip)
			continue
		}

		executed = append(executed, p.Binding)
		next, err := f.runStep(ctx, p.Binding, len(executed), state)
		if errors.Is(err, steps.ErrDeferred) {
			deferred = append(deferred, err)
		} else if err != nil {
			return steps.State{}, executed, err
		}
		state = next
	}

	if len(deferred) > 0 {
		f.logger.Error("flow finished with deferred errors", "count", len(deferred))
		return state, executed, fmt.Errorf("one or more deferred errors were encountered:\n%w", errors.Join(deferred...))
	}

	if f.runDir != "" {
		if err := state.SaveSnapshot(filepath.Join(f.runDir, finalDirname)); err != nil {
			return steps.State{}, executed, fmt.Errorf("saving final state: %w", err)
		}
	}

	f.logger.Info("flow complete", "executed", len(executed))
	return state, executed, nil
}

// runStep runs one step. On a deferred error the step's result, if any, is
// still merged into the returned State.
func (f *Flow) runStep(ctx context.Context, b Binding, ordinal int, state steps.State) (steps.State, error) {
	cfg, err := resolveConfig(allConfigVars(f.def.ConfigVars, []Binding{b}), f.raw)
	if err != nil {
		return steps.State{}, fmt.Errorf("resolving config for step %q: %w", b.ID, err)
	}

	workDir, err := f.stepDir(ordinal, b.ID)
	if err != nil {
		return steps.State{}, err
	}

	sctx := steps.StepContext{
		ID:        b.ID,
		State:     state,
		Config:    cfg,
		WorkDir:   workDir,
		DesignDir: f.designDir,
		Process:   f.process,
		Logger:    f.logger.With("step", b.ID),
	}

	f.logger.Info("running step", "step", b.ID, "ordinal", ordinal)
	f.observer.StepStarted(f.runTag, b)

	start := time.Now()
	result, err := b.Step.Run(ctx, sctx)
	f.observer.StepFinished(f.runTag, b, time.Since(start), err)
	if errors.Is(err, steps.ErrDeferred) {
		f.logger.Warn("step failed, deferring error", "step", b.ID, "error", err)
		return state.Apply(result), err
	}
	if err != nil {
		f.logger.Error("step failed", "step", b.ID, "error", err)
		return steps.State{}, err
	}

	return state.Apply(result), nil
}

func (f *Flow) logSkip(p plannedStep) {
	if p.skip == SkipGated {
		f.logger.Info("gating variable set to false, skipping step", "step", p.ID, "variable", p.gate)
		return
	}
	f.logger.Info("skipping step", "step", p.ID, "reason", p.skip)
}

func (f *Flow) stepDir(ordinal int, id string) (string, error) {
	if f.runDir == "" {
		return "", nil
	}
	dir := filepath.Join(f.runDir, fmt.Sprintf("%d-%s", ordinal, slug(id)))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating step directory: %w", err)
	}
	return dir, nil
}

// slug lowercases id and collapses every run of other characters than
// letters and digits into a single dash.
func slug(id string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
