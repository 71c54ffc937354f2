package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_InsertionOrderPreserved(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("c")
	g.Add("a")
	g.Add("b")
	g.Add("a") // duplicate, ignored

	assert.Equal(t, []string{"c", "a", "b"}, g.Names())
	assert.Equal(t, 3, g.Len())
}

func TestGraph_AddDep(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("a")
	g.Add("b")

	require.NoError(t, g.AddDep("a", "b"))
	require.NoError(t, g.AddDep("a", "b")) // duplicate edge is a no-op
	assert.Equal(t, []string{"b"}, g.Deps("a"))
	assert.Empty(t, g.Deps("b"))

	assert.Error(t, g.AddDep("a", "a"))
	assert.Error(t, g.AddDep("a", "ghost"))
	assert.Error(t, g.AddDep("ghost", "a"))
}

func TestGraph_DepsReturnsCopy(t *testing.T) {
	t.Parallel()

	g := New()
	g.Add("a")
	g.Add("b")
	require.NoError(t, g.AddDep("a", "b"))

	deps := g.Deps("a")
	deps[0] = "mutated"
	assert.Equal(t, []string{"b"}, g.Deps("a"))
}
