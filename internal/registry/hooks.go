package registry

import "context"

// Activator is the optional activation capability of a module's hook
// object. OnActivate runs once the module's position in the load order is
// reached, after all composite types are registered.
type Activator interface {
	OnActivate(ctx context.Context) error
}

// Deactivator is the optional teardown capability, invoked in exact reverse
// load order.
type Deactivator interface {
	OnDeactivate(ctx context.Context) error
}
