package cli

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/systemstart/seqflow/pkg/api"
	"github.com/systemstart/seqflow/pkg/config"
	"github.com/systemstart/seqflow/pkg/flow"
	"github.com/systemstart/seqflow/pkg/steps"
	"github.com/systemstart/seqflow/pkg/telemetry"
	"github.com/urfave/cli/v2"
)

var substituteFlag = &cli.StringSliceFlag{
	Name:  "substitute",
	Usage: "Substitute a step (KEY=ID, -KEY=ID, +KEY=ID, or KEY= to remove)",
}

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a flow and print the final metrics",
		ArgsUsage: "<flow-file-or-name>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file, later files override earlier ones",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Config value (KEY=VALUE), overrides config files",
			},
			&cli.StringFlag{
				Name:  "design-dir",
				Usage: "Design directory (default: the flow file's directory)",
			},
			&cli.StringFlag{
				Name:    "pdk",
				Usage:   "Process design kit",
				EnvVars: []string{"PDK"},
			},
			&cli.StringFlag{
				Name:    "scl",
				Usage:   "Standard cell library",
				EnvVars: []string{"STD_CELL_LIBRARY"},
			},
			&cli.StringFlag{
				Name:    "pdk-root",
				Usage:   "Directory holding the PDKs",
				EnvVars: []string{"PDK_ROOT"},
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "First step to run (id pattern)",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Last step to run (id pattern)",
			},
			&cli.StringSliceFlag{
				Name:  "skip",
				Usage: "Steps to skip (id patterns)",
			},
			substituteFlag,
			&cli.StringFlag{
				Name:  "run-tag",
				Usage: "Name of the run directory (default: a random UUID)",
			},
			&cli.StringFlag{
				Name:  "initial-state",
				Usage: "Directory holding a state.yaml to start from, e.g. a previous run's final/",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write Prometheus step metrics to this file after the run",
			},
		},
		Action: a.run,
	}
}

func (a *app) run(c *cli.Context) error {
	ff, def, err := a.loadFlow(c)
	if err != nil {
		return err
	}

	raw, err := configLayers(ff, c.StringSlice("config"), c.StringSlice("set"))
	if err != nil {
		return err
	}

	subs, err := parseSubstitutions(c.StringSlice("substitute"))
	if err != nil {
		return err
	}

	initial := steps.NewState()
	if dir := c.String("initial-state"); dir != "" {
		initial, err = steps.LoadSnapshot(dir)
		if err != nil {
			return err
		}
	}

	designDir := c.String("design-dir")
	if designDir == "" {
		designDir = ff.Dir
	}

	opts := flow.Options{
		Config:    raw,
		DesignDir: designDir,
		Process: steps.Process{
			PDK:     c.String("pdk"),
			SCL:     c.String("scl"),
			PDKRoot: c.String("pdk-root"),
		},
		Substitute: subs,
		Registry:   a.reg,
		RunTag:     c.String("run-tag"),
		Logger:     a.logger,
	}

	var metrics *prometheus.Registry
	textfile := c.String("metrics-textfile")
	if textfile != "" {
		metrics = prometheus.NewRegistry()
		obs, err := telemetry.NewObserver(metrics)
		if err != nil {
			return err
		}
		opts.Observer = obs
	}

	f, err := flow.New(def, opts)
	if err != nil {
		return err
	}

	state, _, runErr := f.Run(c.Context, initial, flow.StartOptions{
		From: c.String("from"),
		To:   c.String("to"),
		Skip: c.StringSlice("skip"),
	})

	if metrics != nil {
		if err := prometheus.WriteToTextfile(textfile, metrics); err != nil {
			a.logger.Error("failed to write metrics textfile", "filename", textfile, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("flow %q failed: %w", f.Name(), runErr)
	}

	a.logger.Info("run finished", "flow", f.Name(), "run_dir", f.RunDir())
	return printYAML(c.App.Writer, state.Metrics)
}

func (a *app) loadFlow(c *cli.Context) (*api.FlowFile, *flow.Definition, error) {
	ref := c.Args().First()
	if ref == "" {
		return nil, nil, fmt.Errorf("a flow file or flow name is required")
	}

	ff, err := api.FindFlowFile(c.String("flows-dir"), ref)
	if err != nil {
		return nil, nil, err
	}

	def, err := flow.FromFile(ff, a.reg)
	if err != nil {
		return nil, nil, err
	}
	return ff, def, nil
}

// configLayers merges the flow file's config, the given config files in
// order, and KEY=VALUE assignments.
func configLayers(ff *api.FlowFile, files, assignments []string) (map[string]any, error) {
	layers := []map[string]any{ff.Config}
	for _, filename := range files {
		values, err := config.LoadFile(filename)
		if err != nil {
			return nil, err
		}
		layers = append(layers, values)
	}

	set := make(map[string]any, len(assignments))
	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected KEY=VALUE", assignment)
		}
		set[key] = value
	}
	layers = append(layers, set)

	return config.Merge(layers...), nil
}

// parseSubstitutions turns KEY=ID arguments into directives. An empty ID
// removes the matched steps.
func parseSubstitutions(args []string) (flow.Substitutions, error) {
	subs := make(flow.Substitutions, 0, len(args))
	for _, arg := range args {
		key, id, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimLeft(key, "+-") == "" {
			return nil, fmt.Errorf("invalid --substitute %q, expected KEY=ID", arg)
		}
		if id == "" {
			subs = append(subs, flow.Remove(key))
			continue
		}
		subs = append(subs, flow.ReplaceID(key, id))
	}
	return subs, nil
}
