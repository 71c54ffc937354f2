package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForced(t *testing.T) {
	t.Parallel()

	discovered := []string{"studio", "studio.core", "studio.ui", "studio.utils"}

	t.Run("qualifies short names and appends the rest", func(t *testing.T) {
		t.Parallel()
		got := Forced(context.Background(), []string{"ui", "studio.core"}, discovered, "studio")
		assert.Equal(t, []string{"studio.ui", "studio.core", "studio", "studio.utils"}, got)
	})

	t.Run("unknown entries are dropped", func(t *testing.T) {
		t.Parallel()
		got := Forced(context.Background(), []string{"ghost", "core"}, discovered, "studio")
		assert.Equal(t, []string{"studio.core", "studio", "studio.ui", "studio.utils"}, got)
	})

	t.Run("duplicates keep their first position", func(t *testing.T) {
		t.Parallel()
		got := Forced(context.Background(), []string{"core", "ui", "core"}, discovered, "studio")
		assert.Equal(t, []string{"studio.core", "studio.ui", "studio", "studio.utils"}, got)
	})
}
