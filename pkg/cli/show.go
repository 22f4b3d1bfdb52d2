package cli

import (
	"fmt"
	"path/filepath"

	"github.com/systemstart/seqflow/pkg/api"
	"github.com/systemstart/seqflow/pkg/config"
	"github.com/urfave/cli/v2"
)

type flowSummary struct {
	Name             string              `yaml:"name"`
	File             string              `yaml:"file,omitempty"`
	Steps            []string            `yaml:"steps"`
	GatingConfigVars map[string][]string `yaml:"gating_config_vars,omitempty"`
}

type stepSummary struct {
	ID         string            `yaml:"id"`
	ConfigVars []config.Variable `yaml:"config_vars,omitempty"`
}

func (a *app) showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print the runtime step ids of a flow after substitution",
		ArgsUsage: "<flow-file-or-name>",
		Flags:     []cli.Flag{substituteFlag},
		Action:    a.show,
	}
}

func (a *app) show(c *cli.Context) error {
	ff, def, err := a.loadFlow(c)
	if err != nil {
		return err
	}

	subs, err := parseSubstitutions(c.StringSlice("substitute"))
	if err != nil {
		return err
	}
	if len(subs) > 0 {
		def, err = def.Substitute(subs, a.reg)
		if err != nil {
			return err
		}
	}

	summary := flowSummary{
		Name:             def.Name,
		File:             ff.FilePath,
		GatingConfigVars: def.GatingConfigVars,
	}
	for _, b := range def.Bindings() {
		summary.Steps = append(summary.Steps, b.ID)
	}
	return printYAML(c.App.Writer, summary)
}

func (a *app) stepsCommand() *cli.Command {
	return &cli.Command{
		Name:  "steps",
		Usage: "List registered steps and their config variables",
		Action: func(c *cli.Context) error {
			ids := a.reg.IDs()
			summaries := make([]stepSummary, 0, len(ids))
			for _, id := range ids {
				s, err := a.reg.Get(id)
				if err != nil {
					return err
				}
				summaries = append(summaries, stepSummary{ID: id, ConfigVars: s.ConfigVars()})
			}
			return printYAML(c.App.Writer, summaries)
		},
	}
}

func (a *app) flowsCommand() *cli.Command {
	return &cli.Command{
		Name:      "flows",
		Usage:     "List flow files under a directory",
		ArgsUsage: "[directory]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Max directory recursion depth (-1 = unlimited, 0 = root only)",
				Value: -1,
			},
		},
		Action: func(c *cli.Context) error {
			root := c.Args().First()
			if root == "" {
				root = c.String("flows-dir")
			}

			files, err := api.DiscoverFlowFiles(root, c.Int("max-depth"))
			if err != nil {
				return err
			}

			summaries := make([]flowSummary, 0, len(files))
			for _, ff := range files {
				name := ff.Name
				if name == "" {
					name = filepath.Base(ff.FilePath)
				}
				summaries = append(summaries, flowSummary{Name: name, File: ff.FilePath, Steps: ff.Steps})
			}
			a.logger.Debug("discovered flows", "root", root, "count", len(summaries))
			if len(summaries) == 0 {
				return fmt.Errorf("no flow files found under %s", root)
			}
			return printYAML(c.App.Writer, summaries)
		},
	}
}
