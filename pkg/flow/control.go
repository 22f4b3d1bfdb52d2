package flow

import (
	"fmt"
	"strings"

	"github.com/systemstart/seqflow/pkg/config"
	"github.com/xrash/smetrics"
)

// suggestionCutoff is the minimum Jaro-Winkler similarity for a step id to
// be offered as a correction of an unmatched pattern.
const suggestionCutoff = 0.8

// StartOptions narrows which steps of a flow execute. From and To are
// inclusive bounds, Skip excludes steps inside the window. All three take
// case-insensitive id patterns.
type StartOptions struct {
	From string
	To   string
	Skip []string
}

// SkipReason says why a step did not run.
type SkipReason string

const (
	SkipBeforeFrom SkipReason = "before-from"
	SkipAfterTo    SkipReason = "after-to"
	SkipListed     SkipReason = "skip-list"
	SkipGated      SkipReason = "gated"
)

type plannedStep struct {
	Binding
	skip SkipReason
	gate string
}

// plan decides for every step whether it runs. The From/To window is picked
// first, then Skip patterns, then gating variables.
func plan(list []Binding, opts StartOptions, gating map[string][]string, cfg config.Config) ([]plannedStep, error) {
	first, last := 0, len(list)-1

	if opts.From != "" {
		i, err := resolve(opts.From, list, 0)
		if err != nil {
			return nil, err
		}
		first = i
	}
	if opts.To != "" {
		i, err := resolve(opts.To, list, first)
		if err != nil {
			return nil, err
		}
		last = i
	}
	for _, pattern := range opts.Skip {
		if _, err := resolve(pattern, list, 0); err != nil {
			return nil, err
		}
	}

	planned := make([]plannedStep, len(list))
	for i, b := range list {
		p := plannedStep{Binding: b}
		switch {
		case i < first:
			p.skip = SkipBeforeFrom
		case i > last:
			p.skip = SkipAfterTo
		case matchesAny(opts.Skip, b.ID):
			p.skip = SkipListed
		default:
			if name, gated := gatedBy(b.ID, gating, cfg); gated {
				p.skip = SkipGated
				p.gate = name
			}
		}
		planned[i] = p
	}
	return planned, nil
}

// resolve returns the index of the first step at or after start whose id matches pattern.
func resolve(pattern string, list []Binding, start int) (int, error) {
	if err := ValidatePattern(pattern); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}
	for i := start; i < len(list); i++ {
		if Match(pattern, list[i].ID) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: failed to process %q: no step(s) with ID %q found in flow%s",
		ErrInvalidFlow, pattern, pattern, suggest(pattern, list[start:]))
}

// suggest returns a hint naming the step id closest to pattern, or "" when
// none is close enough.
func suggest(pattern string, list []Binding) string {
	var (
		best      string
		bestScore float64
	)
	lowered := strings.ToLower(pattern)
	for _, b := range list {
		score := smetrics.JaroWinkler(lowered, strings.ToLower(b.ID), 0.7, 4)
		if score >= suggestionCutoff && score > bestScore {
			best, bestScore = b.ID, score
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(". Did you mean: %q?", best)
}

func matchesAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if Match(p, id) {
			return true
		}
	}
	return false
}
