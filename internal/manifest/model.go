// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the format-agnostic manifest model: what a module
// declares about itself, independent of the HCL syntax it was parsed from.
//
// Why an explicit manifest instead of reflection?
//
// The dependency and sort logic must consume a static schema, not live
// runtime objects. A module publishes its composite types and their typed
// fields as plain data; an adapter can still populate this shape from a
// host's introspection API, but nothing downstream of this package ever
// reflects over host types.
package manifest

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/zclconf/go-cty/cty"
)

// Reference-creating field factories. A field built by any other factory is
// plain data and never contributes a load-order edge.
const (
	FactoryPointer    = "pointer"
	FactoryCollection = "collection"
)

// Manifest is the parsed content of a module.hcl file.
type Manifest struct {
	// Version is the module's own semver string, optional.
	Version string

	// RequiresHost is an optional semver constraint on the host
	// application version. Modules with an unsatisfied constraint are
	// skipped at discovery time.
	RequiresHost string

	// DependsOn lists extra prerequisite module names, either absolute or
	// namespace-relative.
	DependsOn []string

	// Sources holds doublestar globs, relative to the module directory,
	// selecting the script files to scan for references. Defaults to
	// "*.lua" when empty.
	Sources []string

	// Types are the composite types the module exports, in declaration
	// order.
	Types []*CompositeType
}

// CompositeType is a structured record type registered with the host's
// object system.
type CompositeType struct {
	// Name is the type's short name, unique within its module.
	Name string

	// Module is the owning module's fully-qualified dotted name. It is
	// assigned during discovery, not parsed from the manifest.
	Module string

	Description string

	// Fields in declaration order.
	Fields []*Field
}

// Field is a single typed field of a composite type.
type Field struct {
	Name string

	// Factory identifies how the host constructs the field. Exactly two
	// factories create references: FactoryPointer and FactoryCollection.
	Factory string

	// TypeRef names the referenced composite type for reference fields,
	// either unqualified (same module) or namespace-relative.
	TypeRef string

	// Default is the optional declared default value.
	Default cty.Value

	Optional bool
}

// IsReference reports whether the field's factory creates a reference to
// another composite type.
func (f *Field) IsReference() bool {
	return f.Factory == FactoryPointer || f.Factory == FactoryCollection
}

// QualifiedName returns the type's identity: "<owning module>.<name>".
func (t *CompositeType) QualifiedName() string {
	if t.Module == "" {
		return t.Name
	}
	return t.Module + "." + t.Name
}

// FieldNames returns the declared field names, for diagnostics.
func (t *CompositeType) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Validate checks manifest constraints that do not require knowledge of the
// discovered module set.
func (m *Manifest) Validate() error {
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return fmt.Errorf("invalid version %q: %w", m.Version, err)
		}
	}
	if m.RequiresHost != "" {
		if _, err := semver.NewConstraint(m.RequiresHost); err != nil {
			return fmt.Errorf("invalid requires_host %q: %w", m.RequiresHost, err)
		}
	}

	for _, t := range m.Types {
		seen := make(map[string]struct{}, len(t.Fields))
		for _, f := range t.Fields {
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("type %q declares field %q twice", t.Name, f.Name)
			}
			seen[f.Name] = struct{}{}

			if f.Factory == "" {
				return fmt.Errorf("type %q field %q has no factory", t.Name, f.Name)
			}
			if f.IsReference() && f.TypeRef == "" {
				return fmt.Errorf("type %q field %q: factory %q requires a type", t.Name, f.Name, f.Factory)
			}
		}
	}

	return nil
}

// HostCompatible reports whether the manifest's requires_host constraint is
// satisfied by the given host version. A manifest without a constraint is
// compatible with any host.
func (m *Manifest) HostCompatible(host *semver.Version) (bool, error) {
	if m.RequiresHost == "" || host == nil {
		return true, nil
	}
	c, err := semver.NewConstraint(m.RequiresHost)
	if err != nil {
		return false, fmt.Errorf("invalid requires_host %q: %w", m.RequiresHost, err)
	}
	return c.Check(host), nil
}
