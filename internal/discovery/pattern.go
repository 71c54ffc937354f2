package discovery

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Matcher filters fully-qualified module names against the configured name
// patterns. Patterns are anchored: the whole dotted name must match, and `*`
// matches any suffix including further dots. The namespace itself is always
// eligible, so the root module can never be filtered out.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles the user patterns against the given namespace.
func NewMatcher(namespace string, patterns []string) (*Matcher, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace must not be empty")
	}

	globs := make([]glob.Glob, 0, len(patterns)+1)
	for _, p := range patterns {
		g, err := glob.Compile(namespace + "." + p)
		if err != nil {
			return nil, fmt.Errorf("invalid module pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	// Trailing pattern matching the bare namespace, so the root module
	// always has a defined position in the load order.
	root, err := glob.Compile(namespace)
	if err != nil {
		return nil, fmt.Errorf("invalid namespace %q: %w", namespace, err)
	}
	globs = append(globs, root)

	return &Matcher{globs: globs}, nil
}

// Match reports whether the fully-qualified module name matches at least one
// pattern.
func (m *Matcher) Match(name string) bool {
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
