package flow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/systemstart/seqflow/pkg/steps"
)

// Directive is one entry of a substitution table.
//
// Key is a runtime id (or id pattern) of the steps to edit. A "-" prefix
// inserts the replacement before each matched step, a "+" prefix inserts it
// after, no prefix replaces the matched steps. The replacement is Step, or
// the step registered under StepID; a directive with neither removes the
// matched steps, which is only allowed without a prefix.
type Directive struct {
	Key    string
	Step   steps.Step
	StepID string
}

// Substitutions is a substitution table, applied in order.
type Substitutions []Directive

// Replace returns a directive using step as the replacement.
func Replace(key string, step steps.Step) Directive {
	return Directive{Key: key, Step: step}
}

// ReplaceID returns a directive using the step registered under id.
func ReplaceID(key, id string) Directive {
	return Directive{Key: key, StepID: id}
}

// Remove returns a directive deleting the steps matched by key.
func Remove(key string) Directive {
	return Directive{Key: key}
}

func (d Directive) removes() bool {
	return d.Step == nil && d.StepID == ""
}

func (d Directive) String() string {
	switch {
	case d.Step != nil:
		return fmt.Sprintf("%q", d.Step.ID())
	case d.StepID != "":
		return fmt.Sprintf("%q", d.StepID)
	default:
		return "nil"
	}
}

type editKind int

const (
	editReplace editKind = iota
	editRemove
	editInsertBefore
	editInsertAfter
)

func (k editKind) String() string {
	switch k {
	case editRemove:
		return "remove"
	case editInsertBefore:
		return "prepend"
	case editInsertAfter:
		return "append"
	default:
		return "replace"
	}
}

type edit struct {
	kind      editKind
	anchor    string
	directive Directive
}

// edits turns the table into a list of edit operations without touching any
// step list, so malformed directives fail before anything is applied.
func (s Substitutions) edits() ([]edit, error) {
	out := make([]edit, 0, len(s))
	for _, d := range s {
		e := edit{kind: editReplace, anchor: d.Key, directive: d}
		switch {
		case strings.HasPrefix(d.Key, "-"):
			e.kind = editInsertBefore
			e.anchor = d.Key[1:]
		case strings.HasPrefix(d.Key, "+"):
			e.kind = editInsertAfter
			e.anchor = d.Key[1:]
		case d.removes():
			e.kind = editRemove
		}

		if d.removes() && e.kind != editRemove {
			return nil, fmt.Errorf("%w: %q: cannot prepend or append nil", ErrInvalidFlow, d.Key)
		}
		if err := ValidatePattern(e.anchor); err != nil {
			return nil, fmt.Errorf("%w: substitution key %q: %w", ErrInvalidFlow, d.Key, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (e edit) replacement(reg *steps.Registry) (steps.Step, error) {
	if e.directive.Step != nil {
		return e.directive.Step, nil
	}
	s, err := reg.Get(e.directive.StepID)
	if err != nil {
		return nil, fmt.Errorf("%w: could not %s %q with %q: no replacement step with ID %q found",
			ErrInvalidFlow, e.kind, e.anchor, e.directive.StepID, e.directive.StepID)
	}
	return s, nil
}

func (e edit) apply(list []Binding, reg *steps.Registry) ([]Binding, error) {
	indices := matching(e.anchor, list)
	if len(indices) == 0 {
		if e.kind == editRemove {
			return nil, fmt.Errorf("%w: could not remove %q: no steps with ID %q found in flow",
				ErrInvalidFlow, e.anchor, e.anchor)
		}
		return nil, fmt.Errorf("%w: could not %s %q with %s: no steps with ID %q found in flow",
			ErrInvalidFlow, e.kind, e.anchor, e.directive, e.anchor)
	}

	// Walk backwards so earlier indices stay valid while the list changes.
	slices.Reverse(indices)

	if e.kind == editRemove {
		for _, i := range indices {
			list = slices.Delete(list, i, i+1)
		}
		return list, nil
	}

	s, err := e.replacement(reg)
	if err != nil {
		return nil, err
	}
	b := Binding{ID: s.ID(), Step: s}

	for _, i := range indices {
		switch e.kind {
		case editReplace:
			list[i] = b
		case editInsertBefore:
			list = slices.Insert(list, i, b)
		case editInsertAfter:
			list = slices.Insert(list, i+1, b)
		}
	}
	return list, nil
}

// substitute applies the table to list in order. Every directive is matched
// against the ids the steps had when the table started; inserted and
// replacing steps carry their bare id until the final renumbering.
func substitute(list []Binding, subs Substitutions, reg *steps.Registry) ([]Binding, error) {
	edits, err := subs.edits()
	if err != nil {
		return nil, err
	}
	if reg == nil {
		reg = steps.Default()
	}

	current := slices.Clone(list)
	for _, e := range edits {
		current, err = e.apply(current, reg)
		if err != nil {
			return nil, err
		}
	}
	return bind(variants(current)), nil
}
