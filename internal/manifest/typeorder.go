package manifest

import (
	"fmt"
	"strings"
)

// TypeCycleError reports a reference cycle among composite types. Unlike
// module cycles there is no safe fallback: registering a type before the
// types it references would fail in the host, so the cycle is surfaced as a
// hard error naming every type on the cycle path.
type TypeCycleError struct {
	// Path is the chain of qualified type names forming the cycle.
	Path []string
}

func (e *TypeCycleError) Error() string {
	return fmt.Sprintf("composite type reference cycle: %s", strings.Join(e.Path, " -> "))
}

// RegistrationOrder orders composite types so that every type comes after
// every type it references through a pointer or collection field. Input
// order (module load order, declaration order within a module) is the
// tie-break, which keeps the result deterministic.
func RegistrationOrder(types []*CompositeType, ix *TypeIndex) ([]*CompositeType, error) {
	deps := make(map[*CompositeType][]*CompositeType, len(types))
	for _, t := range types {
		for _, f := range t.Fields {
			if !f.IsReference() {
				continue
			}
			if dep, ok := ix.Resolve(t.Module, f.TypeRef); ok && dep != t {
				deps[t] = append(deps[t], dep)
			}
		}
	}

	ordered := make([]*CompositeType, 0, len(types))
	visited := make(map[*CompositeType]bool, len(types))
	var stack []*CompositeType

	var visit func(t *CompositeType) error
	visit = func(t *CompositeType) error {
		for i, s := range stack {
			if s == t {
				path := make([]string, 0, len(stack)-i+1)
				for _, c := range stack[i:] {
					path = append(path, c.QualifiedName())
				}
				path = append(path, t.QualifiedName())
				return &TypeCycleError{Path: path}
			}
		}
		if visited[t] {
			return nil
		}
		visited[t] = true
		stack = append(stack, t)
		for _, dep := range deps[t] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		ordered = append(ordered, t)
		return nil
	}

	for _, t := range types {
		if err := visit(t); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}
