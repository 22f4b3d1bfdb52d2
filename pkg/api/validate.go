package api

import (
	"fmt"
	"strings"
)

// Validate checks the flow file for errors that do not need the step registry.
func (f *FlowFile) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow has no steps")
	}

	for i, id := range f.Steps {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("step %d: id is required", i)
		}
	}

	names := make(map[string]int)
	for i, v := range f.ConfigVars {
		if v.Name == "" {
			return fmt.Errorf("config_vars %d: name is required", i)
		}
		if prev, exists := names[v.Name]; exists {
			return fmt.Errorf("config_vars %d: duplicate variable %q (first defined at %d)", i, v.Name, prev)
		}
		names[v.Name] = i

		if !v.Type.Valid() {
			return fmt.Errorf("config_vars %q: unknown type %q", v.Name, v.Type)
		}
	}

	for pattern, vars := range f.GatingConfigVars {
		if pattern == "" {
			return fmt.Errorf("gating_config_vars: empty step pattern")
		}
		if len(vars) == 0 {
			return fmt.Errorf("gating_config_vars %q: no variables listed", pattern)
		}
	}

	keys := make(map[string]bool)
	for i, entry := range f.Substitute {
		key := strings.TrimLeft(entry.Key, "+-")
		if key == "" {
			return fmt.Errorf("substitute %d: key %q has no step id", i, entry.Key)
		}
		if keys[entry.Key] {
			return fmt.Errorf("substitute %q: duplicate key", entry.Key)
		}
		keys[entry.Key] = true
		if entry.StepID != nil && *entry.StepID == "" {
			return fmt.Errorf("substitute %q: empty step id, use null to remove", entry.Key)
		}
	}

	return nil
}
