package config

import (
	"fmt"
	"maps"
	"os"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config maps variable names to values.
type Config map[string]any

// Bool returns the named value as a boolean. Missing or unparsable values are false.
func (c Config) Bool(name string) bool {
	v, ok := c[name]
	if !ok {
		return false
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false
	}
	return b
}

// String returns the named value as a string, or "" when missing.
func (c Config) String(name string) string {
	return cast.ToString(c[name])
}

// Strings returns the named value as a string list.
func (c Config) Strings(name string) []string {
	return cast.ToStringSlice(c[name])
}

// Resolve copies raw, fills in defaults for declared variables that are
// missing, and coerces declared variables to their types. Keys without a
// declaration are kept as they are.
func Resolve(vars []Variable, raw map[string]any) (Config, error) {
	resolved := make(Config, len(raw)+len(vars))
	maps.Copy(resolved, raw)

	for _, v := range vars {
		value, ok := resolved[v.Name]
		if !ok || value == nil {
			if v.Default == nil {
				continue
			}
			value = v.Default
		}
		coerced, err := v.Coerce(value)
		if err != nil {
			return nil, err
		}
		resolved[v.Name] = coerced
	}

	return resolved, nil
}

// LoadFile reads a YAML mapping of variable names to values.
func LoadFile(filename string) (map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if values == nil {
		values = make(map[string]any)
	}

	return values, nil
}

// Merge performs a shallow merge of the given mappings; later keys override earlier ones.
func Merge(layers ...map[string]any) map[string]any {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	merged := make(map[string]any, size)
	for _, l := range layers {
		maps.Copy(merged, l)
	}
	return merged
}
