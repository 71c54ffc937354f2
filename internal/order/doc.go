// Package order turns the module dependency graph into a deterministic
// linear load order. Acyclic graphs get a strict topological order; cyclic
// graphs fall back to a configurable priority-bucket heuristic, so sorting
// never fails.
package order
