// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the cycle-fallback bucket policy.
//
// Why buckets instead of breaking the cycle?
//
// Once a dependency cycle exists there is no load order that satisfies every
// edge, but the loader must still load everything. The policy gives up on
// edge-level correctness and falls back to coarse classes: the root module
// first, then utility modules, then core modules, then everything else
// keyed by how many prerequisites a module has. The classes are plain data,
// loadable from YAML, so the heuristic stays inspectable and testable apart
// from discovery.
package order

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/modkit/internal/graph"
)

// DefaultResidualBase is the bucket offset for modules no rule classifies.
const DefaultResidualBase = 10

// Rule assigns a bucket to modules matched by exactly one of its predicates.
type Rule struct {
	Bucket int `yaml:"bucket"`

	// Exact matches the full module name.
	Exact string `yaml:"exact,omitempty"`

	// Segment matches a dotted name segment anywhere in the module name.
	Segment string `yaml:"segment,omitempty"`
}

// matches reports whether the rule classifies the module name.
func (r Rule) matches(name string) bool {
	switch {
	case r.Exact != "":
		return name == r.Exact
	case r.Segment != "":
		return strings.Contains(name, "."+r.Segment+".") || strings.HasSuffix(name, "."+r.Segment)
	default:
		return false
	}
}

// Policy is the ordered rule list used by the cycle fallback. The first
// matching rule wins; unmatched modules land in bucket
// ResidualBase + their prerequisite count.
type Policy struct {
	Rules        []Rule `yaml:"rules"`
	ResidualBase int    `yaml:"residual_base"`
}

// DefaultPolicy reproduces the built-in priorities for a namespace: the root
// module first, utility modules next, core modules after, everything else in
// residual buckets.
func DefaultPolicy(namespace string) *Policy {
	return &Policy{
		Rules: []Rule{
			{Bucket: 0, Exact: namespace},
			{Bucket: 1, Segment: "utils"},
			{Bucket: 2, Segment: "core"},
		},
		ResidualBase: DefaultResidualBase,
	}
}

// LoadPolicy reads a policy from a YAML file. A missing residual_base keeps
// the default offset.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse bucket policy %s: %w", path, err)
	}
	if p.ResidualBase == 0 {
		p.ResidualBase = DefaultResidualBase
	}

	for _, r := range p.Rules {
		if r.Exact == "" && r.Segment == "" {
			return nil, fmt.Errorf("bucket policy %s: rule for bucket %d has no predicate", path, r.Bucket)
		}
	}

	return &p, nil
}

// BucketFor classifies one module. degree is the module's prerequisite
// count, used for the residual bucket only.
func (p *Policy) BucketFor(name string, degree int) int {
	for _, r := range p.Rules {
		if r.matches(name) {
			return r.Bucket
		}
	}
	return p.ResidualBase + degree
}

// Order produces the fallback total order: buckets ascending, members of a
// bucket sorted lexicographically. Every graph node appears exactly once.
func (p *Policy) Order(g *graph.Graph) []string {
	groups := make(map[int][]string)
	for _, name := range g.Names() {
		b := p.BucketFor(name, len(g.Deps(name)))
		groups[b] = append(groups[b], name)
	}

	buckets := make([]int, 0, len(groups))
	for b := range groups {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)

	out := make([]string, 0, g.Len())
	for _, b := range buckets {
		members := groups[b]
		sort.Strings(members)
		out = append(out, members...)
	}
	return out
}
