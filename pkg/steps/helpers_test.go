package steps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/systemstart/seqflow/pkg/config"
)

// writeTestFile writes content to a file in dir, creating parent directories.
func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// stepConfig resolves raw against the variables the step declares.
func stepConfig(t *testing.T, step Step, raw map[string]any) config.Config {
	t.Helper()
	cfg, err := config.Resolve(step.ConfigVars(), raw)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(content)
}
