package grid

import (
	"math/rand"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPalette_StablePerCourse(t *testing.T) {
	t.Parallel()

	p := NewPalette(rand.NewSource(42))
	a := p.ColorFor("CS 101")
	b := p.ColorFor("MATH 200")

	assert.Equal(t, a, p.ColorFor("CS 101"))
	assert.Equal(t, b, p.ColorFor("MATH 200"))
	assert.Regexp(t, `^#[0-9a-f]{6}$`, a)
}

func TestPalette_Pastel(t *testing.T) {
	t.Parallel()

	p := NewPalette(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		hex := p.next()
		c, err := colorful.Hex(hex)
		require.NoError(t, err)

		_, s, v := c.Hsv()
		// Hex rounding moves the components slightly.
		assert.InDelta(t, 0.4, s, 0.1+0.02, hex)
		assert.GreaterOrEqual(t, v, minValue-0.01, hex)
	}
}

func TestPalette_SameSeedSameColors(t *testing.T) {
	t.Parallel()

	a := NewPalette(rand.NewSource(1))
	b := NewPalette(rand.NewSource(1))
	assert.Equal(t, a.ColorFor("X"), b.ColorFor("X"))
}
