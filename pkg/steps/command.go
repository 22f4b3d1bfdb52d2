package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/systemstart/seqflow/pkg/config"
	"gopkg.in/yaml.v3"
)

const (
	RunCommandID = "Misc.RunCommand"

	defaultCommandLog = "command.log"
)

var runCommandVars = []config.Variable{
	{
		Name:        "COMMAND",
		Type:        config.TypeList,
		Description: "Program and arguments to run.",
	},
	{
		Name:        "COMMAND_LOG",
		Type:        config.TypeString,
		Default:     defaultCommandLog,
		Description: "File in the step directory receiving the command's output.",
	},
	{
		Name:        "COMMAND_METRICS",
		Type:        config.TypeString,
		Description: "YAML or JSON file the command writes its metrics to, relative to the step directory.",
	},
}

type runCommandStep struct{}

// NewRunCommandStep creates the step that runs an external tool inside the
// step directory and collects the metrics it reports.
func NewRunCommandStep() Step {
	return runCommandStep{}
}

func (runCommandStep) ID() string                    { return RunCommandID }
func (runCommandStep) ConfigVars() []config.Variable { return runCommandVars }

func (s runCommandStep) Run(ctx context.Context, sctx StepContext) (*StepResult, error) {
	argv := sctx.Config.Strings("COMMAND")
	if len(argv) == 0 {
		return nil, fmt.Errorf("%s: COMMAND is not set", s.ID())
	}

	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("%s binary not found in PATH: %w", argv[0], err)
	}

	dir := sctx.WorkDir
	if dir == "" {
		dir = sctx.DesignDir
	}

	logger(sctx).Info("running command", "step", sctx.ID, "command", argv[0], "dir", dir)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), commandEnv(sctx)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := &StepResult{
		Updates: map[string]any{},
		Metrics: map[string]any{},
	}

	if dir != "" {
		logFile := filepath.Join(dir, sctx.Config.String("COMMAND_LOG"))
		if err := os.WriteFile(logFile, append(stdout.Bytes(), stderr.Bytes()...), 0o600); err != nil {
			return nil, fmt.Errorf("writing command log: %w", err)
		}
		result.Updates["command_log"] = logFile
	}

	if runErr != nil {
		return nil, fmt.Errorf("%s failed: %w\nstderr: %s", argv[0], runErr, stderr.String())
	}

	if name := sctx.Config.String("COMMAND_METRICS"); name != "" {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		metrics, err := readToolMetrics(name)
		if err != nil {
			return nil, err
		}
		result.Metrics = metrics
	}

	return result, nil
}

func commandEnv(sctx StepContext) []string {
	var env []string
	for key, value := range map[string]string{
		"DESIGN_DIR": sctx.DesignDir,
		"STEP_DIR":   sctx.WorkDir,
		"PDK":        sctx.Process.PDK,
		"SCL":        sctx.Process.SCL,
		"PDK_ROOT":   sctx.Process.PDKRoot,
	} {
		if value != "" {
			env = append(env, key+"="+value)
		}
	}
	return env
}

func readToolMetrics(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading tool metrics: %w", err)
	}

	metrics := make(map[string]any)
	if err := yaml.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("parsing tool metrics %s: %w", filename, err)
	}
	return metrics, nil
}
