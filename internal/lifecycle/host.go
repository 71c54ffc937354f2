package lifecycle

import (
	"context"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
)

// Host is the external object system composite types are registered with.
// Registration may fail per type; the driver treats such failures as
// best-effort and keeps going.
type Host interface {
	RegisterType(ctx context.Context, t *manifest.CompositeType) error
	UnregisterType(ctx context.Context, t *manifest.CompositeType) error
}

// LogHost is a Host that only logs. Used for dry runs from the CLI, where no
// real host application is attached.
type LogHost struct{}

// RegisterType implements Host.
func (LogHost) RegisterType(ctx context.Context, t *manifest.CompositeType) error {
	ctxlog.FromContext(ctx).Info("Registered composite type.", "type", t.QualifiedName())
	return nil
}

// UnregisterType implements Host.
func (LogHost) UnregisterType(ctx context.Context, t *manifest.CompositeType) error {
	ctxlog.FromContext(ctx).Info("Unregistered composite type.", "type", t.QualifiedName())
	return nil
}
