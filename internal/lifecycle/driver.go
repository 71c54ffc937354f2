package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/internal/registry"
)

// State tracks where the driver is in the lifecycle protocol.
type State int

// Lifecycle states, in activation order. Deactivation walks them backwards.
const (
	StateUnregistered State = iota
	StateTypesRegistered
	StateActive
)

// Report summarizes one activation or deactivation pass. The driver logs a
// warning summary when anything failed; callers inspect the report instead
// of handling errors, because nothing propagates past the driver boundary.
type Report struct {
	RunID string

	// TypesRegistered counts successful registrations on an activate pass;
	// TypesUnregistered counts successful unregistrations on a deactivate
	// pass.
	TypesRegistered   int
	TypesUnregistered int
	TypeFailures      []string

	// CycleTypes names the composite types on a reference cycle, which
	// prevents any type registration for the pass.
	CycleTypes []string

	HooksRun     int
	HookFailures []string
}

// OK reports whether the pass completed without any per-item failure.
func (r *Report) OK() bool {
	return len(r.TypeFailures) == 0 && len(r.HookFailures) == 0 && len(r.CycleTypes) == 0
}

// Driver executes the lifecycle protocol over a registry's resolved module
// set.
type Driver struct {
	host    Host
	reg     *registry.Registry
	metrics *Metrics

	// registered holds the successfully registered types in registration
	// order, so teardown can unregister exactly those, reversed.
	registered []*manifest.CompositeType
	state      State
}

// Option configures a Driver.
type Option func(*Driver)

// WithMetrics attaches lifecycle metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

// NewDriver creates a driver for the given host and registry.
func NewDriver(host Host, reg *registry.Registry, opts ...Option) *Driver {
	d := &Driver{host: host, reg: reg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Activate registers all composite types in reference order, then runs each
// module's activation hook in load order. Every step is fault-isolated;
// failures are logged with full context and collected into the report, and
// the pass always runs to completion.
func (d *Driver) Activate(ctx context.Context) *Report {
	report := &Report{RunID: uuid.NewString()}
	logger := ctxlog.FromContext(ctx).With("run_id", report.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	types, err := d.reg.TypeOrder()
	var cycleErr *manifest.TypeCycleError
	if errors.As(err, &cycleErr) {
		// No safe registration order exists, so no type is registered;
		// module hooks still run.
		report.CycleTypes = cycleErr.Path
		for _, name := range cycleErr.Path {
			logger.Error("Composite type is part of a reference cycle and cannot be registered.", "type", name)
		}
		types = nil
	} else if err != nil {
		logger.Error("Failed to order composite types.", "error", err)
		types = nil
	}

	for _, t := range types {
		if err := d.host.RegisterType(ctx, t); err != nil {
			logger.Error("Composite type registration failed.",
				"type", t.QualifiedName(),
				"module", t.Module,
				"fields", t.FieldNames(),
				"error", err)
			report.TypeFailures = append(report.TypeFailures, t.QualifiedName())
			d.metrics.typeFailed("register")
			continue
		}
		d.registered = append(d.registered, t)
		report.TypesRegistered++
		d.metrics.typeRegistered()
	}
	d.state = StateTypesRegistered

	for _, m := range d.reg.Modules() {
		act, ok := d.reg.HooksFor(m.Name).(registry.Activator)
		if !ok {
			continue
		}
		if err := d.callHook(ctx, m.Name, "activate", act.OnActivate); err != nil {
			report.HookFailures = append(report.HookFailures, m.Name)
			d.metrics.hookFailed("activate")
			continue
		}
		report.HooksRun++
		d.metrics.hookRan("activate")
	}
	d.state = StateActive

	if !report.OK() {
		logger.Warn("Some components failed to initialize.",
			"type_failures", report.TypeFailures,
			"hook_failures", report.HookFailures,
			"cycle_types", report.CycleTypes)
	}
	return report
}

// Deactivate runs teardown hooks in exact reverse load order, then
// unregisters the successfully registered types in exact reverse
// registration order. Each step is independently fault-isolated so teardown
// always runs to completion, regardless of prior partial failures.
func (d *Driver) Deactivate(ctx context.Context) *Report {
	report := &Report{RunID: uuid.NewString()}
	logger := ctxlog.FromContext(ctx).With("run_id", report.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	modules := d.reg.Modules()
	for i := len(modules) - 1; i >= 0; i-- {
		m := modules[i]
		deact, ok := d.reg.HooksFor(m.Name).(registry.Deactivator)
		if !ok {
			continue
		}
		if err := d.callHook(ctx, m.Name, "deactivate", deact.OnDeactivate); err != nil {
			report.HookFailures = append(report.HookFailures, m.Name)
			d.metrics.hookFailed("deactivate")
			continue
		}
		report.HooksRun++
		d.metrics.hookRan("deactivate")
	}
	d.state = StateTypesRegistered

	for i := len(d.registered) - 1; i >= 0; i-- {
		t := d.registered[i]
		if err := d.host.UnregisterType(ctx, t); err != nil {
			logger.Error("Composite type unregistration failed.",
				"type", t.QualifiedName(),
				"module", t.Module,
				"error", err)
			report.TypeFailures = append(report.TypeFailures, t.QualifiedName())
			d.metrics.typeFailed("unregister")
			continue
		}
		report.TypesUnregistered++
	}
	d.registered = nil
	d.state = StateUnregistered

	if !report.OK() {
		logger.Warn("Some components failed to shut down cleanly.",
			"type_failures", report.TypeFailures,
			"hook_failures", report.HookFailures)
	}
	return report
}

// callHook invokes a module lifecycle hook with panic isolation. A panicking
// hook is logged with its stack trace and converted into an error.
func (d *Driver) callHook(ctx context.Context, module, phase string, fn func(context.Context) error) (err error) {
	logger := ctxlog.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Module hook panicked.",
				"module", module,
				"phase", phase,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()

	if err := fn(ctx); err != nil {
		logger.Error("Module hook failed.", "module", module, "phase", phase, "error", err)
		return err
	}
	return nil
}
