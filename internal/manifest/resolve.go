package manifest

import "strings"

// TypeIndex resolves composite-type references across the discovered module
// set. It is built once per resolution pass, after all manifests are loaded.
type TypeIndex struct {
	namespace string
	types     map[string]*CompositeType
}

// NewTypeIndex indexes every composite type by its qualified name.
// Duplicate qualified names keep the first declaration.
func NewTypeIndex(namespace string, types []*CompositeType) *TypeIndex {
	ix := &TypeIndex{
		namespace: namespace,
		types:     make(map[string]*CompositeType, len(types)),
	}
	for _, t := range types {
		qn := t.QualifiedName()
		if _, exists := ix.types[qn]; !exists {
			ix.types[qn] = t
		}
	}
	return ix
}

// Resolve maps a field's type reference, declared by a type owned by the
// given module, to the referenced composite type. An unqualified reference
// names a type in the same module; a dotted reference is namespace-relative
// unless already namespace-qualified.
func (ix *TypeIndex) Resolve(ownerModule, ref string) (*CompositeType, bool) {
	if ref == "" {
		return nil, false
	}

	var qualified string
	switch {
	case !strings.Contains(ref, "."):
		qualified = ownerModule + "." + ref
	case ref == ix.namespace || strings.HasPrefix(ref, ix.namespace+"."):
		qualified = ref
	default:
		qualified = ix.namespace + "." + ref
	}

	t, ok := ix.types[qualified]
	return t, ok
}

// Len returns the number of indexed types.
func (ix *TypeIndex) Len() int {
	return len(ix.types)
}
