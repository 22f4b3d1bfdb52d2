package flow

import (
	"fmt"

	"github.com/systemstart/seqflow/pkg/steps"
)

// Binding is a step placed in a flow under its runtime id.
type Binding struct {
	ID   string
	Step steps.Step
}

// bind assigns runtime ids: the first step with a given id keeps it, later
// ones get the lowest free "-N" suffix.
func bind(list []steps.Step) []Binding {
	used := make(map[string]bool, len(list))
	bindings := make([]Binding, len(list))
	for i, s := range list {
		base := s.ID()
		id := base
		for counter := 1; used[id]; counter++ {
			id = fmt.Sprintf("%s-%d", base, counter)
		}
		used[id] = true
		bindings[i] = Binding{ID: id, Step: s}
	}
	return bindings
}

func variants(list []Binding) []steps.Step {
	out := make([]steps.Step, len(list))
	for i, b := range list {
		out[i] = b.Step
	}
	return out
}

func ids(list []Binding) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.ID
	}
	return out
}
