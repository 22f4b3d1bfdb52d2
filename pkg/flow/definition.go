package flow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/systemstart/seqflow/pkg/config"
	"github.com/systemstart/seqflow/pkg/steps"
)

const customFlowName = "Custom Sequential Flow"

// Definition describes a reusable flow: its steps, the configuration
// variables it declares, and which boolean variables gate which steps.
// Build definitions with NewDefinition or Make so they are validated.
type Definition struct {
	Name             string
	Steps            []steps.Step
	ConfigVars       []config.Variable
	GatingConfigVars map[string][]string
}

// NewDefinition copies d and validates its gating table.
func NewDefinition(d Definition) (*Definition, error) {
	def := &Definition{
		Name:             d.Name,
		Steps:            slices.Clone(d.Steps),
		ConfigVars:       slices.Clone(d.ConfigVars),
		GatingConfigVars: cloneGating(d.GatingConfigVars),
	}
	if def.Name == "" {
		def.Name = customFlowName
	}

	if err := def.validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// validate checks the step list and the gating table. New repeats it, since
// a Definition literal never went through NewDefinition.
func (d *Definition) validate() error {
	for i, s := range d.Steps {
		if s == nil {
			return fmt.Errorf("%w: flow %q: step %d is nil", ErrInvalidFlow, d.Name, i)
		}
	}
	return ValidateGating(d.Name, d.ConfigVars, d.GatingConfigVars)
}

// Make builds a definition from step ids registered in the process-wide registry.
func Make(ids ...string) (*Definition, error) {
	return MakeFrom(steps.Default(), ids...)
}

// MakeFrom builds a definition from step ids registered in reg. It fails on
// the first id that is not registered.
func MakeFrom(reg *steps.Registry, ids ...string) (*Definition, error) {
	list, err := lookup(reg, ids)
	if err != nil {
		return nil, err
	}
	return NewDefinition(Definition{Name: customFlowName, Steps: list})
}

func lookup(reg *steps.Registry, ids []string) ([]steps.Step, error) {
	list := make([]steps.Step, 0, len(ids))
	for _, id := range ids {
		s, err := reg.Get(id)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// Bindings returns the definition's steps with their runtime ids.
func (d *Definition) Bindings() []Binding {
	return bind(d.Steps)
}

// Substitute derives a definition named "<name>'" with subs applied. String
// replacements are looked up in reg, or the process-wide registry when reg is nil.
func (d *Definition) Substitute(subs Substitutions, reg *steps.Registry) (*Definition, error) {
	bindings, err := substitute(d.Bindings(), subs, reg)
	if err != nil {
		return nil, fmt.Errorf("substituting steps in flow %q: %w", d.Name, err)
	}
	return NewDefinition(Definition{
		Name:             d.Name + "'",
		Steps:            variants(bindings),
		ConfigVars:       d.ConfigVars,
		GatingConfigVars: d.GatingConfigVars,
	})
}

// allConfigVars returns the flow's variables followed by those of its steps.
// The first declaration of a name wins.
func allConfigVars(flowVars []config.Variable, list []Binding) []config.Variable {
	seen := make(map[string]bool)
	var out []config.Variable
	add := func(vars []config.Variable) {
		for _, v := range vars {
			if seen[v.Name] {
				continue
			}
			seen[v.Name] = true
			out = append(out, v)
		}
	}
	add(flowVars)
	for _, b := range list {
		add(b.Step.ConfigVars())
	}
	return out
}

func cloneGating(g map[string][]string) map[string][]string {
	out := maps.Clone(g)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}
