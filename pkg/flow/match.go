package flow

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether the whole id matches pattern, ignoring case.
// Patterns support *, ?, [classes] and {alternatives}.
func Match(pattern, id string) bool {
	ok, err := doublestar.Match(strings.ToLower(pattern), strings.ToLower(id))
	return err == nil && ok
}

// ValidatePattern returns ErrInvalidPattern for empty or malformed patterns.
func ValidatePattern(pattern string) error {
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	return nil
}

// matching returns the indices of bindings whose id matches pattern.
func matching(pattern string, list []Binding) []int {
	var indices []int
	for i, b := range list {
		if Match(pattern, b.ID) {
			indices = append(indices, i)
		}
	}
	return indices
}
