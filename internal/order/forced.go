package order

import (
	"context"
	"strings"

	"github.com/vk/modkit/internal/ctxlog"
)

// Forced builds a load order from an explicit module-name list, bypassing
// the sorter entirely. Names are qualified with the namespace when needed;
// names outside the discovered set are warned about and dropped. Discovered
// modules the list does not mention are appended in discovery order.
func Forced(ctx context.Context, forced []string, discovered []string, namespace string) []string {
	logger := ctxlog.FromContext(ctx)

	known := make(map[string]struct{}, len(discovered))
	for _, n := range discovered {
		known[n] = struct{}{}
	}

	var out []string
	placed := make(map[string]struct{}, len(forced))
	for _, name := range forced {
		full := name
		if full != namespace && !strings.HasPrefix(full, namespace+".") {
			full = namespace + "." + full
		}

		if _, ok := known[full]; !ok {
			logger.Warn("Forced-order entry not found among discovered modules.", "module", full)
			continue
		}
		if _, dup := placed[full]; dup {
			continue
		}
		placed[full] = struct{}{}
		out = append(out, full)
	}

	for _, n := range discovered {
		if _, ok := placed[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
