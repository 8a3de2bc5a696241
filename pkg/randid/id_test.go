package randid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestGenerate(t *testing.T) {
	assert.Empty(t, Generate(0))
	assert.Empty(t, Generate(-1))
	assert.Len(t, Generate(6), 6)
}

func TestGenerate_Alphabet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(t, "n")
		id := Generate(n)

		if len(id) != n {
			t.Fatalf("len(%q) = %d, want %d", id, len(id), n)
		}
		for _, r := range id {
			if !strings.ContainsRune(alphabet, r) {
				t.Fatalf("unexpected rune %q in %q", r, id)
			}
		}
	})
}
