package config

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Interpolate renders every string value (and every item of a string list)
// that contains a template action. The data for each template is the config
// as it was before interpolation, so values cannot reference each other's
// rendered form. Variables in vars marked Raw are left alone.
func Interpolate(cfg Config, vars []Variable) error {
	data := maps.Clone(map[string]any(cfg))

	raw := make(map[string]bool)
	for _, v := range vars {
		if v.Raw {
			raw[v.Name] = true
		}
	}

	for _, key := range slices.Sorted(maps.Keys(cfg)) {
		if raw[key] {
			continue
		}
		switch v := cfg[key].(type) {
		case string:
			out, err := render(key, v, data)
			if err != nil {
				return err
			}
			cfg[key] = out
		case []string:
			items := make([]string, len(v))
			for i, item := range v {
				out, err := render(key, item, data)
				if err != nil {
					return err
				}
				items[i] = out
			}
			cfg[key] = items
		}
	}

	return nil
}

func render(name, text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing template for %q: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("interpolating %q: %w", name, err)
	}
	return buf.String(), nil
}
