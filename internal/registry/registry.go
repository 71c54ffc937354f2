package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/modkit/internal/discovery"
	"github.com/vk/modkit/internal/manifest"
)

// Module is the interface extension packages implement to contribute
// lifecycle hooks to a registry instance.
type Module interface {
	Register(r *Registry)
}

// Registry is the explicit, instance-scoped replacement for global module
// and class caches. It is owned by one plugin-system instance and never
// shared across logical threads of control.
type Registry struct {
	hooks map[string]any

	modules []*discovery.Module
	index   *manifest.TypeIndex

	// typeOrder memoizes the composite-type registration order; it is
	// invalidated whenever the module set changes and recomputed on
	// demand.
	typeOrder    []*manifest.CompositeType
	typeOrderErr error
	typeOrderOK  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		hooks: make(map[string]any),
	}
}

// RegisterHooks attaches a hook object to the named module. The object's
// lifecycle participation is capability-based: it may implement Activator,
// Deactivator, both, or neither. Registering the same module twice is a
// programmer error.
func (r *Registry) RegisterHooks(module string, hooks any) {
	if _, exists := r.hooks[module]; exists {
		panic(fmt.Sprintf("hooks for module '%s' already registered", module))
	}
	slog.Debug("Registering module hooks.", "module", module)
	r.hooks[module] = hooks
}

// HooksFor returns the hook object registered for the module, or nil.
func (r *Registry) HooksFor(module string) any {
	return r.hooks[module]
}

// SetModules installs the module list in final load order and rebuilds the
// type index. The memoized registration order is invalidated.
func (r *Registry) SetModules(namespace string, modules []*discovery.Module) {
	r.modules = modules

	var types []*manifest.CompositeType
	for _, m := range modules {
		types = append(types, m.Manifest.Types...)
	}
	r.index = manifest.NewTypeIndex(namespace, types)
	r.Invalidate()
}

// Modules returns the installed module list in load order.
func (r *Registry) Modules() []*discovery.Module {
	return r.modules
}

// TypeIndex returns the index over all installed composite types, or nil
// before SetModules.
func (r *Registry) TypeIndex() *manifest.TypeIndex {
	return r.index
}

// Invalidate discards the memoized registration order, forcing the next
// TypeOrder call to recompute it. Called on re-initialization.
func (r *Registry) Invalidate() {
	r.typeOrder = nil
	r.typeOrderErr = nil
	r.typeOrderOK = false
}

// TypeOrder returns the composite-type registration order: every type after
// the types it references, module load order as the tie-break. The result is
// memoized until Invalidate. A reference cycle among types returns a
// *manifest.TypeCycleError.
func (r *Registry) TypeOrder() ([]*manifest.CompositeType, error) {
	if r.typeOrderOK {
		return r.typeOrder, r.typeOrderErr
	}

	var types []*manifest.CompositeType
	for _, m := range r.modules {
		types = append(types, m.Manifest.Types...)
	}

	r.typeOrder, r.typeOrderErr = manifest.RegistrationOrder(types, r.index)
	r.typeOrderOK = true
	return r.typeOrder, r.typeOrderErr
}
