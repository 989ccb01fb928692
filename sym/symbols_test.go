package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolsAreUnique(t *testing.T) {
	seen := make(map[string]string)
	for _, d := range All() {
		prev, dup := seen[d.Glyph]
		assert.False(t, dup, "glyph %s used by %s and %s", d.Glyph, prev, d.Name)
		seen[d.Glyph] = d.Name
	}
}

func TestLookup(t *testing.T) {
	glyph, ok := Lookup("sakura")
	assert.True(t, ok)
	assert.Equal(t, Sakura, glyph)

	_, ok = Lookup("pulse")
	assert.False(t, ok)
}
