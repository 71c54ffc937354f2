// Package graph holds the module dependency graph: one node per discovered
// module, and an edge for every "must load before" relationship gathered
// from static reference scanning and manifest declarations.
package graph
