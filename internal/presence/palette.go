package presence

import (
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultPaletteSize is the number of distinct participant colours.
const DefaultPaletteSize = 12

const goldenRatio = 0.618033988749895

// Palette hands out a stable colour per participant id. Ids are indexed
// in first-seen order and the palette cycles once it runs out.
type Palette struct {
	colors   []string
	assigned map[string]string
	next     int
	mu       sync.Mutex
}

// NewPalette builds a palette of size colours spread around the hue
// circle by the golden ratio.
func NewPalette(size int) *Palette {
	if size <= 0 {
		size = DefaultPaletteSize
	}
	colors := make([]string, size)
	for i := range colors {
		hue := float64(i) * goldenRatio
		hue = hue - float64(int(hue)) // keep fractional part
		colors[i] = colorful.Hsl(hue*360, 0.85, 0.55).Hex()
	}
	return &Palette{
		colors:   colors,
		assigned: make(map[string]string),
	}
}

// Color returns the colour of userID, assigning the next one on first use.
func (p *Palette) Color(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.assigned[userID]; ok {
		return c
	}
	c := p.colors[p.next%len(p.colors)]
	p.next++
	p.assigned[userID] = c
	return c
}

// Colors returns the palette entries in order.
func (p *Palette) Colors() []string {
	return append([]string(nil), p.colors...)
}

// Reset forgets every assignment.
func (p *Palette) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assigned = make(map[string]string)
	p.next = 0
}
