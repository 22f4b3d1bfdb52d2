package api

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFlowFile reads a flow file, sets Dir/FilePath, and validates it.
func LoadFlowFile(filename string) (*FlowFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading flow file: %w", err)
	}

	var f FlowFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing flow file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	f.FilePath = absPath
	f.Dir = filepath.Dir(absPath)

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validating flow %s: %w", filename, err)
	}

	return &f, nil
}
