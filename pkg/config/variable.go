package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cast"
)

// ErrInvalidConfig is returned when a value cannot be used as its declared type.
var ErrInvalidConfig = errors.New("invalid config")

// Type is the declared type of a configuration variable.
type Type string

const (
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeString Type = "string"
	TypeList   Type = "list"
	TypePath   Type = "path"
	TypeAny    Type = "any"
)

var validTypes = map[Type]bool{
	TypeBool:   true,
	TypeInt:    true,
	TypeFloat:  true,
	TypeString: true,
	TypeList:   true,
	TypePath:   true,
	TypeAny:    true,
}

// Valid reports whether t is a known variable type.
func (t Type) Valid() bool {
	return validTypes[t]
}

// Variable describes a typed configuration variable.
type Variable struct {
	Name        string `yaml:"name"`
	Type        Type   `yaml:"type"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description"`

	// Raw values are handed to steps without interpolation, e.g. templates
	// the step renders itself.
	Raw bool `yaml:"raw,omitempty"`
}

// Bool is shorthand for declaring a boolean variable.
func Bool(name string, def bool, description string) Variable {
	return Variable{Name: name, Type: TypeBool, Default: def, Description: description}
}

// Coerce converts value to the variable's declared type.
func (v Variable) Coerce(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch v.Type {
	case TypeBool:
		out, err = cast.ToBoolE(value)
	case TypeInt:
		out, err = cast.ToIntE(value)
	case TypeFloat:
		out, err = cast.ToFloat64E(value)
	case TypeString, TypePath:
		out, err = cast.ToStringE(value)
	case TypeList:
		out, err = cast.ToStringSliceE(value)
	case TypeAny, "":
		out = value
	default:
		return nil, fmt.Errorf("%w: variable %q has unknown type %q", ErrInvalidConfig, v.Name, v.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: variable %q: %v is not a valid %s", ErrInvalidConfig, v.Name, value, v.Type)
	}
	return out, nil
}
