package incident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeDetector(t *testing.T) {
	t.Parallel()

	t.Run("first run never fires", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		assert.False(t, d.Observe([]string{"A", "B", "C"}))
	})

	t.Run("new id fires", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		d.Observe([]string{"A", "B"})
		assert.True(t, d.Observe([]string{"A", "B", "C"}))
	})

	t.Run("same count churn fires", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		d.Observe([]string{"A", "B"})
		assert.True(t, d.Observe([]string{"A", "C"}))
	})

	t.Run("removal and repeat do not fire", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		d.Observe([]string{"A", "B"})
		assert.False(t, d.Observe([]string{"A"}))
		assert.False(t, d.Observe([]string{"A"}))
	})

	t.Run("after an empty run does not fire", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		d.Observe([]string{"A"})
		assert.False(t, d.Observe(nil))
		assert.False(t, d.Observe([]string{"B"}))
		assert.True(t, d.Observe([]string{"B", "C"}))
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		var d ChangeDetector
		d.Observe([]string{"A"})
		d.Reset()
		assert.False(t, d.Observe([]string{"B"}))
	})
}
