package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/systemstart/seqflow/pkg/config"
)

// ErrDeferred marks a step failure that does not stop the flow. The flow
// keeps running and reports all deferred failures once it is done.
var ErrDeferred = errors.New("deferred step error")

// Defer wraps err so that it matches ErrDeferred.
func Defer(err error) error {
	return fmt.Errorf("%w: %w", ErrDeferred, err)
}

// Process identifies the target process a flow runs against.
type Process struct {
	PDK     string
	SCL     string
	PDKRoot string
}

// StepContext provides the runtime context for a step.
type StepContext struct {
	ID        string // runtime id inside the flow, e.g. "Misc.Report-1"
	State     State
	Config    config.Config
	WorkDir   string // per-step directory, empty when the flow has no design directory
	DesignDir string
	Process   Process
	Logger    *slog.Logger
}

// StepResult holds the output of a step. Both maps are merged into the
// running State; same-named entries overwrite older ones.
type StepResult struct {
	Updates map[string]any
	Metrics map[string]any
}

// Step is the interface all flow steps implement.
type Step interface {
	// ID returns the namespaced id the step is registered under.
	ID() string

	// ConfigVars returns the configuration variables the step reads.
	ConfigVars() []config.Variable

	Run(ctx context.Context, sctx StepContext) (*StepResult, error)
}

// RunFunc is the signature of a step body.
type RunFunc func(ctx context.Context, sctx StepContext) (*StepResult, error)

type funcStep struct {
	id   string
	vars []config.Variable
	run  RunFunc
}

// NewFuncStep creates a Step from a plain function.
func NewFuncStep(id string, run RunFunc, vars ...config.Variable) Step {
	return &funcStep{id: id, vars: vars, run: run}
}

func (s *funcStep) ID() string                    { return s.id }
func (s *funcStep) ConfigVars() []config.Variable { return s.vars }

func (s *funcStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	return s.run(ctx, sctx)
}

func logger(sctx StepContext) *slog.Logger {
	if sctx.Logger != nil {
		return sctx.Logger
	}
	return slog.Default()
}
