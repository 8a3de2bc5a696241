package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		h := NewHistory(3)
		assert.Equal(t, 0, h.Len())
		assert.InDelta(t, 0.0, h.Average(), 1e-9)
	})

	t.Run("evicts oldest", func(t *testing.T) {
		h := NewHistory(3)
		for _, s := range []float64{0.1, 0.2, 0.3, 0.9} {
			h.Record(s)
		}
		assert.Equal(t, 3, h.Len())
		assert.InDelta(t, (0.2+0.3+0.9)/3, h.Average(), 1e-9)
	})
}
