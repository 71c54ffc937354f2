// Package app wires discovery, analysis, sorting and the lifecycle driver
// into one plugin-system instance.
package app

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vk/modkit/internal/lifecycle"
	"github.com/vk/modkit/internal/refscan"
	"github.com/vk/modkit/internal/registry"
)

// App encapsulates one plugin-system instance: its configuration, logger,
// registry, host binding and extractor. Instances are isolated; nothing is
// shared through globals.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *registry.Registry
	host      lifecycle.Host
	extractor refscan.Extractor
	driver    *lifecycle.Driver
	promReg   prometheus.Registerer
	metrics   *lifecycle.Metrics
}

// Option configures an App beyond its Config.
type Option func(*App)

// WithHost binds the host object system. Defaults to lifecycle.LogHost for
// dry runs.
func WithHost(h lifecycle.Host) Option {
	return func(a *App) {
		a.host = h
	}
}

// WithExtractor overrides the static reference extractor. Defaults to the
// Lua extractor.
func WithExtractor(e refscan.Extractor) Option {
	return func(a *App) {
		a.extractor = e
	}
}

// WithMetricsRegisterer binds the lifecycle counters to a Prometheus
// registerer, typically the host process's registry. Without it the counters
// still count but are not collected anywhere.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) {
		a.promReg = reg
	}
}

// NewApp constructs an App with its own isolated logger and registry. The
// given extension modules contribute lifecycle hooks.
func NewApp(outW io.Writer, config *Config, modules []registry.Module, opts ...Option) *App {
	logger := newLogger(config, outW)

	reg := registry.New()
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("Extension hooks registered.", "count", len(modules))

	a := &App{
		outW:      outW,
		logger:    logger,
		config:    config,
		registry:  reg,
		host:      lifecycle.LogHost{},
		extractor: refscan.NewLuaExtractor(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics = lifecycle.NewMetrics(a.promReg)
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
