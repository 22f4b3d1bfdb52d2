package flow

import (
	"fmt"
	"maps"
	"slices"

	"github.com/systemstart/seqflow/pkg/config"
)

// ValidateGating checks a gating table against the variables a flow
// declares: every referenced variable must exist and be a boolean.
func ValidateGating(flowName string, vars []config.Variable, gating map[string][]string) error {
	byName := make(map[string]config.Variable, len(vars))
	for _, v := range vars {
		byName[v.Name] = v
	}

	for _, pattern := range slices.Sorted(maps.Keys(gating)) {
		if err := ValidatePattern(pattern); err != nil {
			return fmt.Errorf("%w: flow %q: %w", ErrGatingSchema, flowName, err)
		}
		for _, name := range gating[pattern] {
			v, ok := byName[name]
			if !ok {
				return fmt.Errorf("%w: gating variable %q for step %q does not match any declared config_vars in flow %q",
					ErrGatingSchema, name, pattern, flowName)
			}
			if v.Type != config.TypeBool {
				return fmt.Errorf("%w: gating variable %q in flow %q is not a Boolean",
					ErrGatingSchema, name, flowName)
			}
		}
	}
	return nil
}

// gatedBy returns the first gating variable that disables id, if any.
// Patterns are checked in sorted order so the reported variable is stable.
func gatedBy(id string, gating map[string][]string, cfg config.Config) (string, bool) {
	for _, pattern := range slices.Sorted(maps.Keys(gating)) {
		if !Match(pattern, id) {
			continue
		}
		for _, name := range gating[pattern] {
			if !cfg.Bool(name) {
				return name, true
			}
		}
	}
	return "", false
}
