package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modkit/internal/registry"
)

// journalModule contributes hooks that record activation order for one module.
type journalModule struct {
	name    string
	journal *[]string
}

func (m *journalModule) Register(r *registry.Registry) {
	r.RegisterHooks(m.name, &journalHooks{name: m.name, journal: m.journal})
}

type journalHooks struct {
	name    string
	journal *[]string
}

func (h *journalHooks) OnActivate(context.Context) error {
	*h.journal = append(*h.journal, h.name)
	return nil
}

func (h *journalHooks) OnDeactivate(context.Context) error {
	*h.journal = append(*h.journal, "-"+h.name)
	return nil
}

// writeFixtureTree materializes the canonical test tree:
//
//	studio/
//	  utils/x/      (no dependencies)
//	  core/a/       requires utils.x
//	  core/b/       requires core.a
func writeFixtureTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "studio")

	files := map[string]string{
		"utils/x/module.hcl": "",
		"utils/x/init.lua":   `return {}`,
		"core/a/module.hcl":  "",
		"core/a/main.lua":    `local x = require("utils.x")`,
		"core/b/module.hcl":  "",
		"core/b/main.lua":    `local a = require("core.a")`,
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func newTestConfig(t *testing.T, root string, mutate func(*Config)) *Config {
	t.Helper()
	cfg := Config{
		RootPath:  root,
		Namespace: "studio",
		LogFormat: "text",
		LogLevel:  "error",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)
	return config
}

func TestRun_EndToEndActivationOrder(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	var journal []string
	mods := []registry.Module{
		&journalModule{name: "studio.core.a", journal: &journal},
		&journalModule{name: "studio.core.b", journal: &journal},
		&journalModule{name: "studio.utils.x", journal: &journal},
	}

	out := &bytes.Buffer{}
	a := NewApp(out, newTestConfig(t, root, nil), mods)

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []string{"studio.utils.x", "studio.core.a", "studio.core.b"}, journal)

	printed := out.String()
	assert.Contains(t, printed, "Final module load order:")
	assert.Less(t,
		strings.Index(printed, "utils.x"),
		strings.Index(printed, "core.a"),
		"utils.x must be printed before core.a")
	assert.Contains(t, printed, "core.b (deps: core.a)")

	// The registry holds the modules in final load order.
	var installed []string
	for _, m := range a.Registry().Modules() {
		installed = append(installed, m.Name)
	}
	assert.Equal(t, []string{"studio.utils.x", "studio.core.a", "studio.core.b", "studio"}, installed)
}

func TestRun_LifecycleMetricsExported(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	var journal []string
	mods := []registry.Module{&journalModule{name: "studio.core.a", journal: &journal}}

	promReg := prometheus.NewRegistry()
	a := NewApp(&bytes.Buffer{}, newTestConfig(t, root, nil), mods, WithMetricsRegisterer(promReg))
	require.NoError(t, a.Run(context.Background()))

	families, err := promReg.Gather()
	require.NoError(t, err)

	counts := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			counts[f.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), counts["modkit_hooks_run_total"])
	assert.Zero(t, counts["modkit_hook_failures_total"])
}

func TestRun_DeactivationIsExactReverse(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	var journal []string
	mods := []registry.Module{
		&journalModule{name: "studio.core.a", journal: &journal},
		&journalModule{name: "studio.utils.x", journal: &journal},
	}

	a := NewApp(&bytes.Buffer{}, newTestConfig(t, root, nil), mods)
	_, err := a.cycle(context.Background())
	require.NoError(t, err)

	report := a.driver.Deactivate(context.Background())
	require.True(t, report.OK())

	assert.Equal(t, []string{
		"studio.utils.x",
		"studio.core.a",
		"-studio.core.a",
		"-studio.utils.x",
	}, journal)
}

func TestRun_ForcedOrderBypassesSorter(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	var journal []string
	mods := []registry.Module{
		&journalModule{name: "studio.core.a", journal: &journal},
		&journalModule{name: "studio.core.b", journal: &journal},
		&journalModule{name: "studio.utils.x", journal: &journal},
	}

	config := newTestConfig(t, root, func(c *Config) {
		c.ForceOrder = []string{"core.b", "core.a", "utils.x"}
	})
	a := NewApp(&bytes.Buffer{}, config, mods)
	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []string{"studio.core.b", "studio.core.a", "studio.utils.x"}, journal)
}

func TestRun_DebugGraphArtifact(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	config := newTestConfig(t, root, func(c *Config) {
		c.DebugGraph = true
	})

	a := NewApp(&bytes.Buffer{}, config, nil)
	require.NoError(t, a.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "debug", "module_dependencies.mmd"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "core_b --> core_a")
}

func TestRun_MissingRootFails(t *testing.T) {
	t.Parallel()

	config := newTestConfig(t, filepath.Join(t.TempDir(), "nope"), nil)
	a := NewApp(&bytes.Buffer{}, config, nil)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery")
}

func TestRun_HookFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	root := writeFixtureTree(t)
	mods := []registry.Module{&failingModule{name: "studio.core.a"}}

	a := NewApp(&bytes.Buffer{}, newTestConfig(t, root, nil), mods)
	report, err := a.cycle(context.Background())
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []string{"studio.core.a"}, report.HookFailures)
}

type failingModule struct{ name string }

func (m *failingModule) Register(r *registry.Registry) {
	r.RegisterHooks(m.name, failingHooks{})
}

type failingHooks struct{}

func (failingHooks) OnActivate(context.Context) error {
	return assert.AnError
}

func TestNewConfig_Defaults(t *testing.T) {
	t.Parallel()

	config, err := NewConfig(Config{RootPath: "/some/path/studio"})
	require.NoError(t, err)
	assert.Equal(t, "studio", config.Namespace)
	assert.Equal(t, []string{"*"}, config.Patterns)

	_, err = NewConfig(Config{})
	require.Error(t, err)
}
