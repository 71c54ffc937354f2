package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modkit/internal/discovery"
	"github.com/vk/modkit/internal/manifest"
	"github.com/vk/modkit/internal/registry"
)

// recordingHost records every type operation and can be told to fail for
// specific type names.
type recordingHost struct {
	registered   []string
	unregistered []string
	failRegister map[string]bool
}

func (h *recordingHost) RegisterType(_ context.Context, t *manifest.CompositeType) error {
	if h.failRegister[t.Name] {
		return fmt.Errorf("host rejected %s", t.Name)
	}
	h.registered = append(h.registered, t.QualifiedName())
	return nil
}

func (h *recordingHost) UnregisterType(_ context.Context, t *manifest.CompositeType) error {
	h.unregistered = append(h.unregistered, t.QualifiedName())
	return nil
}

// recordingHooks appends "<module>:<phase>" entries to a shared journal.
type recordingHooks struct {
	module  string
	journal *[]string

	activateErr   error
	activatePanic bool
}

func (h *recordingHooks) OnActivate(context.Context) error {
	if h.activatePanic {
		panic("boom")
	}
	if h.activateErr != nil {
		return h.activateErr
	}
	*h.journal = append(*h.journal, h.module+":activate")
	return nil
}

func (h *recordingHooks) OnDeactivate(context.Context) error {
	*h.journal = append(*h.journal, h.module+":deactivate")
	return nil
}

func modWithTypes(name string, types ...*manifest.CompositeType) *discovery.Module {
	for _, t := range types {
		t.Module = name
	}
	return &discovery.Module{Name: name, Manifest: &manifest.Manifest{Types: types}}
}

// fixture builds a registry over five modules in load order, with a journal
// capturing hook invocations.
func fixture(t *testing.T, journal *[]string) (*registry.Registry, []*recordingHooks) {
	t.Helper()

	names := []string{"studio", "studio.utils", "studio.core", "studio.timeline", "studio.ui"}
	reg := registry.New()

	var hooks []*recordingHooks
	var modules []*discovery.Module
	for _, name := range names {
		h := &recordingHooks{module: name, journal: journal}
		reg.RegisterHooks(name, h)
		hooks = append(hooks, h)
		modules = append(modules, modWithTypes(name))
	}
	reg.SetModules("studio", modules)
	return reg, hooks
}

func TestDriver_ActivateDeactivateSymmetry(t *testing.T) {
	t.Parallel()

	var journal []string
	reg, _ := fixture(t, &journal)
	host := &recordingHost{}
	d := NewDriver(host, reg)

	actReport := d.Activate(context.Background())
	require.True(t, actReport.OK())
	assert.Equal(t, StateActive, d.State())
	assert.Equal(t, []string{
		"studio:activate",
		"studio.utils:activate",
		"studio.core:activate",
		"studio.timeline:activate",
		"studio.ui:activate",
	}, journal)

	journal = journal[:0]
	deactReport := d.Deactivate(context.Background())
	require.True(t, deactReport.OK())
	assert.Equal(t, StateUnregistered, d.State())
	assert.Equal(t, []string{
		"studio.ui:deactivate",
		"studio.timeline:deactivate",
		"studio.core:deactivate",
		"studio.utils:deactivate",
		"studio:deactivate",
	}, journal)
}

func TestDriver_TypeRegistrationOrderAndTeardown(t *testing.T) {
	t.Parallel()

	scene := &manifest.CompositeType{Name: "Scene"}
	strip := &manifest.CompositeType{Name: "Strip", Fields: []*manifest.Field{
		{Name: "scene", Factory: manifest.FactoryPointer, TypeRef: "core.Scene"},
	}}

	reg := registry.New()
	reg.SetModules("studio", []*discovery.Module{
		modWithTypes("studio"),
		modWithTypes("studio.core", scene),
		modWithTypes("studio.timeline", strip),
	})

	host := &recordingHost{}
	d := NewDriver(host, reg)

	report := d.Activate(context.Background())
	require.True(t, report.OK())
	assert.Equal(t, 2, report.TypesRegistered)
	assert.Equal(t, []string{"studio.core.Scene", "studio.timeline.Strip"}, host.registered)

	deactReport := d.Deactivate(context.Background())
	assert.Equal(t, []string{"studio.timeline.Strip", "studio.core.Scene"}, host.unregistered)
	assert.Equal(t, 2, deactReport.TypesUnregistered)
	assert.Zero(t, deactReport.TypesRegistered)
}

func TestDriver_RegistrationFailureIsIsolated(t *testing.T) {
	t.Parallel()

	bad := &manifest.CompositeType{Name: "Bad"}
	good := &manifest.CompositeType{Name: "Good"}

	reg := registry.New()
	reg.SetModules("studio", []*discovery.Module{
		modWithTypes("studio.core", bad, good),
	})

	host := &recordingHost{failRegister: map[string]bool{"Bad": true}}
	d := NewDriver(host, reg)

	report := d.Activate(context.Background())
	assert.False(t, report.OK())
	assert.Equal(t, 1, report.TypesRegistered)
	assert.Equal(t, []string{"studio.core.Bad"}, report.TypeFailures)
	assert.Equal(t, []string{"studio.core.Good"}, host.registered)

	// Teardown must only unregister what actually registered.
	deactReport := d.Deactivate(context.Background())
	assert.Equal(t, []string{"studio.core.Good"}, host.unregistered)
	assert.Equal(t, 1, deactReport.TypesUnregistered)
}

func TestDriver_HookErrorDoesNotStopTheBatch(t *testing.T) {
	t.Parallel()

	var journal []string
	reg, hooks := fixture(t, &journal)
	hooks[2].activateErr = errors.New("init failed")

	d := NewDriver(&recordingHost{}, reg)
	report := d.Activate(context.Background())

	assert.False(t, report.OK())
	assert.Equal(t, []string{"studio.core"}, report.HookFailures)
	assert.Equal(t, 4, report.HooksRun)
	assert.Contains(t, journal, "studio.ui:activate")
}

func TestDriver_HookPanicIsRecovered(t *testing.T) {
	t.Parallel()

	var journal []string
	reg, hooks := fixture(t, &journal)
	hooks[1].activatePanic = true

	d := NewDriver(&recordingHost{}, reg)

	var report *Report
	require.NotPanics(t, func() {
		report = d.Activate(context.Background())
	})
	assert.Equal(t, []string{"studio.utils"}, report.HookFailures)
	assert.Contains(t, journal, "studio.ui:activate")
}

func TestDriver_TypeCycleSkipsRegistrationButRunsHooks(t *testing.T) {
	t.Parallel()

	a := &manifest.CompositeType{Name: "A", Fields: []*manifest.Field{
		{Name: "b", Factory: manifest.FactoryPointer, TypeRef: "B"},
	}}
	b := &manifest.CompositeType{Name: "B", Fields: []*manifest.Field{
		{Name: "a", Factory: manifest.FactoryPointer, TypeRef: "A"},
	}}

	var journal []string
	reg := registry.New()
	reg.RegisterHooks("studio.core", &recordingHooks{module: "studio.core", journal: &journal})
	reg.SetModules("studio", []*discovery.Module{
		modWithTypes("studio.core", a, b),
	})

	host := &recordingHost{}
	d := NewDriver(host, reg)

	report := d.Activate(context.Background())
	assert.False(t, report.OK())
	assert.NotEmpty(t, report.CycleTypes)
	assert.Empty(t, host.registered)
	assert.Equal(t, []string{"studio.core:activate"}, journal)
}

func TestDriver_ModulesWithoutHooksAreSkipped(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.SetModules("studio", []*discovery.Module{modWithTypes("studio")})

	d := NewDriver(&recordingHost{}, reg)
	report := d.Activate(context.Background())

	require.True(t, report.OK())
	assert.Zero(t, report.HooksRun)
}

func TestDriver_MetricsCountOutcomes(t *testing.T) {
	t.Parallel()

	bad := &manifest.CompositeType{Name: "Bad"}
	good := &manifest.CompositeType{Name: "Good"}

	var journal []string
	reg := registry.New()
	reg.RegisterHooks("studio.core", &recordingHooks{module: "studio.core", journal: &journal})
	reg.RegisterHooks("studio.ui", &recordingHooks{module: "studio.ui", journal: &journal, activateErr: errors.New("init failed")})
	reg.SetModules("studio", []*discovery.Module{
		modWithTypes("studio.core", bad, good),
		modWithTypes("studio.ui"),
	})

	m := NewMetrics(prometheus.NewRegistry())
	host := &recordingHost{failRegister: map[string]bool{"Bad": true}}
	d := NewDriver(host, reg, WithMetrics(m))

	d.Activate(context.Background())

	assert.Equal(t, float64(1), testutil.ToFloat64(m.typesRegistered))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.typeFailures.WithLabelValues("register")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hooksRun.WithLabelValues("activate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.hookFailures.WithLabelValues("activate")))

	d.Deactivate(context.Background())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.hooksRun.WithLabelValues("deactivate")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.typeFailures.WithLabelValues("unregister")))
}

func TestDriver_MetricsAreOptional(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.SetModules("studio", []*discovery.Module{
		modWithTypes("studio.core", &manifest.CompositeType{Name: "Scene"}),
	})

	// No WithMetrics option; every metric call must be a safe no-op.
	d := NewDriver(&recordingHost{failRegister: map[string]bool{"Scene": true}}, reg)
	require.NotPanics(t, func() {
		d.Activate(context.Background())
		d.Deactivate(context.Background())
	})
}
