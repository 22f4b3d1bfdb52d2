package api

import (
	"fmt"

	"github.com/systemstart/seqflow/pkg/config"
	"gopkg.in/yaml.v3"
)

const FlowFileExtension = ".flow.yaml"

// FlowFile is the YAML flow definition format.
type FlowFile struct {
	Name             string              `yaml:"name"`
	Steps            []string            `yaml:"steps"`
	ConfigVars       []config.Variable   `yaml:"config_vars"`
	GatingConfigVars map[string][]string `yaml:"gating_config_vars"`
	Substitute       SubstituteTable     `yaml:"substitute"`
	Config           map[string]any      `yaml:"config"`

	// Set by the loader, not from YAML.
	Dir      string `yaml:"-"`
	FilePath string `yaml:"-"`
}

// SubstituteEntry is one substitution directive. A nil StepID removes the
// steps matched by Key.
type SubstituteEntry struct {
	Key    string
	StepID *string
}

// SubstituteTable keeps the entries in the order they appear in the file.
type SubstituteTable []SubstituteEntry

// UnmarshalYAML decodes a mapping of keys to step ids or null.
func (t *SubstituteTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: substitute must be a mapping", node.Line)
	}

	entries := make(SubstituteTable, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := SubstituteEntry{Key: key.Value}

		switch {
		case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
		case value.Kind == yaml.ScalarNode:
			id := value.Value
			entry.StepID = &id
		default:
			return fmt.Errorf("line %d: substitute %q: value must be a step id or null", value.Line, key.Value)
		}

		entries = append(entries, entry)
	}

	*t = entries
	return nil
}
