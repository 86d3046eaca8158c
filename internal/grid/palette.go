package grid

import (
	"math/rand"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Pastel bounds keep dark text legible on top of the course color.
const (
	minSaturation = 0.3
	maxSaturation = 0.5
	minValue      = 0.9
	maxValue      = 1.0
)

// Palette hands out one pastel color per course name. A Palette belongs to
// a single render call; it is not safe for concurrent use.
type Palette struct {
	rnd    *rand.Rand
	colors map[string]string
}

// NewPalette returns a palette drawing from src. A nil src is seeded from
// the clock.
func NewPalette(src rand.Source) *Palette {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Palette{
		rnd:    rand.New(src),
		colors: make(map[string]string),
	}
}

// ColorFor returns the course's color, assigning a new one on first use.
func (p *Palette) ColorFor(course string) string {
	if c, ok := p.colors[course]; ok {
		return c
	}
	c := p.next()
	p.colors[course] = c
	return c
}

func (p *Palette) next() string {
	h := p.rnd.Float64() * 360
	s := minSaturation + p.rnd.Float64()*(maxSaturation-minSaturation)
	v := minValue + p.rnd.Float64()*(maxValue-minValue)
	return colorful.Hsv(h, s, v).Hex()
}
