package flow

import (
	"fmt"

	"github.com/systemstart/seqflow/pkg/api"
	"github.com/systemstart/seqflow/pkg/steps"
)

// FromFile builds a definition from a flow file. Step ids and substitution
// targets are looked up in reg, or the process-wide registry when reg is nil.
// The file's substitution table is folded into the step list.
func FromFile(ff *api.FlowFile, reg *steps.Registry) (*Definition, error) {
	if reg == nil {
		reg = steps.Default()
	}

	list, err := lookup(reg, ff.Steps)
	if err != nil {
		return nil, fmt.Errorf("flow file %s: %w", ff.FilePath, err)
	}

	if len(ff.Substitute) > 0 {
		bindings, err := substitute(bind(list), TableFromFile(ff.Substitute), reg)
		if err != nil {
			return nil, fmt.Errorf("flow file %s: %w", ff.FilePath, err)
		}
		list = variants(bindings)
	}

	return NewDefinition(Definition{
		Name:             ff.Name,
		Steps:            list,
		ConfigVars:       ff.ConfigVars,
		GatingConfigVars: ff.GatingConfigVars,
	})
}

// TableFromFile converts a decoded substitution table into directives.
func TableFromFile(t api.SubstituteTable) Substitutions {
	subs := make(Substitutions, 0, len(t))
	for _, e := range t {
		if e.StepID == nil {
			subs = append(subs, Remove(e.Key))
			continue
		}
		subs = append(subs, ReplaceID(e.Key, *e.StepID))
	}
	return subs
}
