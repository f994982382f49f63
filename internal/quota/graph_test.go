package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCycle(t *testing.T) {
	t.Run("empty batch has no cycle", func(t *testing.T) {
		assert.False(t, HasCycle(nil))
		assert.False(t, HasCycle([]Transition{}))
	})

	t.Run("self loop is a cycle", func(t *testing.T) {
		assert.True(t, HasCycle([]Transition{{From: "A", To: "A"}}))
	})

	t.Run("two-node cycle", func(t *testing.T) {
		assert.True(t, HasCycle([]Transition{
			{From: "A", To: "B"},
			{From: "B", To: "A"},
		}))
	})

	t.Run("disjoint edges have no cycle", func(t *testing.T) {
		assert.False(t, HasCycle([]Transition{
			{From: "A", To: "B"},
			{From: "C", To: "D"},
		}))
	})

	// The upstream system flags a duplicated identical edge as a cycle;
	// kept as-is rather than silently reinterpreting it.
	t.Run("duplicate identical edge counts as a cycle", func(t *testing.T) {
		assert.True(t, HasCycle([]Transition{
			{From: "A", To: "B"},
			{From: "A", To: "B"},
		}))
	})

	t.Run("longer cycle through several tracks", func(t *testing.T) {
		assert.True(t, HasCycle([]Transition{
			{From: "A", To: "B"},
			{From: "B", To: "C"},
			{From: "C", To: "D"},
			{From: "D", To: "A"},
		}))
	})

	t.Run("diamond without back edge has no cycle", func(t *testing.T) {
		assert.False(t, HasCycle([]Transition{
			{From: "A", To: "B"},
			{From: "A", To: "C"},
			{From: "B", To: "D"},
			{From: "C", To: "D"},
		}))
	})
}
