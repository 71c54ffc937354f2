// Package registry holds the per-instance state of a plugin system: the
// ordered module list, the lifecycle hooks contributed by compiled-in
// extension packages, and the memoized composite-type registration order.
// Owning this state explicitly, instead of process-wide globals, is what
// makes clean re-initialization possible.
package registry
