package steps

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const snapshotFilename = "state.yaml"

// State is the snapshot threaded through a flow. A State is never modified
// in place; Apply returns a new one.
type State struct {
	Inputs  map[string]any `yaml:"inputs"`
	Metrics map[string]any `yaml:"metrics"`
}

// NewState returns an empty State.
func NewState() State {
	return State{
		Inputs:  make(map[string]any),
		Metrics: make(map[string]any),
	}
}

// Apply returns a copy of s with the result's updates and metrics merged in.
// A nil result yields an unchanged copy.
func (s State) Apply(r *StepResult) State {
	next := State{
		Inputs:  maps.Clone(s.Inputs),
		Metrics: maps.Clone(s.Metrics),
	}
	if next.Inputs == nil {
		next.Inputs = make(map[string]any)
	}
	if next.Metrics == nil {
		next.Metrics = make(map[string]any)
	}
	if r != nil {
		maps.Copy(next.Inputs, r.Updates)
		maps.Copy(next.Metrics, r.Metrics)
	}
	return next
}

// MetricInt returns a numeric metric as an int, or 0 when it is missing.
func (s State) MetricInt(name string) int {
	switch v := s.Metrics[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SaveSnapshot writes the state as YAML into dir.
func (s State) SaveSnapshot(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, snapshotFilename), data, 0o600); err != nil {
		return fmt.Errorf("writing state snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a state previously written by SaveSnapshot.
func LoadSnapshot(dir string) (State, error) {
	data, err := os.ReadFile(filepath.Join(dir, snapshotFilename))
	if err != nil {
		return State{}, fmt.Errorf("reading state snapshot: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("parsing state snapshot: %w", err)
	}
	return s.Apply(nil), nil
}
