// Package flow assembles registered steps into sequential flows and runs them.
//
// A Definition is an ordered list of steps plus the configuration variables
// the flow declares and a gating table mapping step-id patterns to boolean
// variables. Definitions are validated when they are built. New binds a
// Definition to a configuration, applies an optional substitution table and
// gives every step a unique runtime id: the first occurrence of an id keeps
// it, later ones get "-1", "-2", ... in order.
//
// Start runs the flow. From, To and Skip narrow the steps that execute,
// gating variables set to false disable the steps they guard, and the
// remaining steps run one after the other with each step's metrics merged
// into the State handed to the next.
//
// Step ids are matched with case-insensitive glob patterns everywhere a
// pattern is accepted (substitution keys, gating keys, From/To/Skip).
package flow
