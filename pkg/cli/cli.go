// Package cli provides the command-line interface for seqflow.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/systemstart/seqflow/pkg/logging"
	"github.com/systemstart/seqflow/pkg/steps"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "log-type",
		Usage:   "Logging type: json, text or tint",
		Value:   logging.Tint,
		EnvVars: []string{"SEQFLOW_LOG_TYPE"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Logging level: debug, info, warn, error",
		Value:   "info",
		EnvVars: []string{"SEQFLOW_LOG_LEVEL"},
	},
	&cli.StringFlag{
		Name:    "flows-dir",
		Usage:   "Directory searched for flows referenced by name",
		Value:   ".",
		EnvVars: []string{"SEQFLOW_FLOWS_DIR"},
	},
}

type app struct {
	reg    *steps.Registry
	logger *slog.Logger
}

// NewApp builds the CLI application. Flow steps are looked up in reg and
// command output is written to out; logs go to the app's ErrWriter.
func NewApp(reg *steps.Registry, out io.Writer) *cli.App {
	a := &app{reg: reg, logger: slog.Default()}

	return &cli.App{
		Name:    "seqflow",
		Usage:   "Run sequential hardware design flows",
		Version: Version,
		Description: `seqflow assembles registered steps into a flow described by a
.flow.yaml file and runs them one after the other.

Examples:
  seqflow run --design-dir ./spm classic.flow.yaml
  seqflow run --from Misc.* --skip *Report* --substitute Misc.MetricsReport= classic
  seqflow show --substitute +Misc.RenderTemplates=Misc.MetricsReport classic
  seqflow steps`,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags:     GlobalFlags,
		Before:    a.setupLogging,
		Commands: []*cli.Command{
			a.runCommand(),
			a.showCommand(),
			a.stepsCommand(),
			a.flowsCommand(),
		},
		// Step id patterns may contain {a,b} alternatives.
		DisableSliceFlagSeparator: true,
	}
}

func (a *app) setupLogging(c *cli.Context) error {
	logger, err := logging.New(c.App.ErrWriter, c.String("log-type"), c.String("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}
