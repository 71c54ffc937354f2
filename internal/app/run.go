package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/discovery"
	"github.com/vk/modkit/internal/graph"
	"github.com/vk/modkit/internal/lifecycle"
	"github.com/vk/modkit/internal/order"
	"github.com/vk/modkit/internal/refscan"
)

// Run executes the main application logic based on the configuration:
// resolve the module tree, print the load order, and activate it against
// the bound host. Partial activation failure is reported, not returned;
// only resolution-level failures produce an error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Watch {
		return a.watch(ctx)
	}

	_, err := a.cycle(ctx)
	return err
}

// cycle performs one full resolve-and-activate pass.
func (a *App) cycle(ctx context.Context) (*lifecycle.Report, error) {
	modules, loadOrder, g, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}

	a.printOrder(loadOrder, g)

	a.registry.SetModules(a.config.Namespace, reorder(modules, loadOrder))
	a.driver = lifecycle.NewDriver(a.host, a.registry, lifecycle.WithMetrics(a.metrics))

	report := a.driver.Activate(ctx)
	if report.OK() {
		a.logger.Info("Activation complete.",
			"modules", len(loadOrder), "types", report.TypesRegistered, "hooks", report.HooksRun)
	}
	return report, nil
}

// resolve runs discovery, reference analysis, graph construction and
// sorting, returning the discovered modules and their final load order.
func (a *App) resolve(ctx context.Context) ([]*discovery.Module, []string, *graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	modules, err := discovery.Scan(ctx, a.config.RootPath, discovery.Options{
		Namespace:   a.config.Namespace,
		Patterns:    a.config.Patterns,
		HostVersion: a.config.HostVersion,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("module discovery failed: %w", err)
	}

	scanned := a.scanReferences(ctx, modules)

	g, err := graph.Build(ctx, modules, scanned, graph.BuildOptions{
		Namespace: a.config.Namespace,
		Strict:    a.config.Strict,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	if a.config.DebugGraph {
		if _, err := graph.WriteDebug(ctx, g, a.config.Namespace, a.config.RootPath); err != nil {
			logger.Warn("Failed to write dependency diagram.", "error", err)
		}
	}

	discovered := make([]string, 0, len(modules))
	for _, m := range modules {
		discovered = append(discovered, m.Name)
	}

	var loadOrder []string
	if len(a.config.ForceOrder) > 0 {
		logger.Info("Using forced module load order.")
		loadOrder = order.Forced(ctx, a.config.ForceOrder, discovered, a.config.Namespace)
	} else {
		pol, err := a.loadPolicy()
		if err != nil {
			return nil, nil, nil, err
		}
		result := order.Sort(ctx, g, pol)
		loadOrder = result.Order
	}

	loadOrder = order.AppendMissing(loadOrder, discovered)

	return modules, loadOrder, g, nil
}

// scanReferences extracts and resolves static cross-module references for
// every discovered module. A parse failure in one file never aborts the
// analysis of other files or modules.
func (a *App) scanReferences(ctx context.Context, modules []*discovery.Module) map[string][]string {
	logger := ctxlog.FromContext(ctx)

	discovered := make(map[string]bool, len(modules))
	for _, m := range modules {
		discovered[m.Name] = true
	}

	scanned := make(map[string][]string, len(modules))
	for _, m := range modules {
		files, err := refscan.SourceFiles(m.Dir, m.Manifest.Sources)
		if err != nil {
			logger.Warn("Failed to resolve module source globs.", "module", m.Name, "error", err)
			continue
		}

		var refs []refscan.Reference
		for _, file := range files {
			src, err := os.ReadFile(file)
			if err != nil {
				logger.Warn("Skipping unreadable source file.", "module", m.Name, "file", file, "error", err)
				continue
			}
			fileRefs, err := a.extractor.Extract(file, src)
			if err != nil {
				logger.Error("Reference analysis failed for source file.", "module", m.Name, "file", file, "error", err)
				continue
			}
			refs = append(refs, fileRefs...)
		}

		scanned[m.Name] = refscan.Resolve(m.Name, refs, a.config.Namespace, discovered)
	}
	return scanned
}

// loadPolicy returns the configured bucket policy, or the namespace default.
func (a *App) loadPolicy() (*order.Policy, error) {
	if a.config.PolicyPath == "" {
		return order.DefaultPolicy(a.config.Namespace), nil
	}
	pol, err := order.LoadPolicy(a.config.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load bucket policy: %w", err)
	}
	return pol, nil
}

// printOrder writes the numbered final load order, with short names and each
// module's prerequisites, to the instance's output writer.
func (a *App) printOrder(loadOrder []string, g *graph.Graph) {
	fmt.Fprintln(a.outW, "Final module load order:")
	for i, name := range loadOrder {
		deps := g.Deps(name)
		depStr := "-"
		if len(deps) > 0 {
			shorts := make([]string, 0, len(deps))
			for _, d := range deps {
				shorts = append(shorts, a.shortName(d))
			}
			depStr = strings.Join(shorts, ", ")
		}
		fmt.Fprintf(a.outW, "%2d. %s (deps: %s)\n", i+1, a.shortName(name), depStr)
	}
}

// shortName strips the namespace prefix for display.
func (a *App) shortName(name string) string {
	prefix := a.config.Namespace + "."
	if strings.HasPrefix(name, prefix) {
		return name[len(prefix):]
	}
	return name
}

// reorder arranges modules to match the final load order.
func reorder(modules []*discovery.Module, loadOrder []string) []*discovery.Module {
	byName := make(map[string]*discovery.Module, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	out := make([]*discovery.Module, 0, len(modules))
	for _, name := range loadOrder {
		if m, ok := byName[name]; ok {
			out = append(out, m)
		}
	}
	return out
}
