package staff

import "github.com/matzehuels/engrave/pkg/core/glyph"

// Primitive is a drawing instruction: a [Line] or a [GlyphPath].
type Primitive interface {
	primitive()
}

// Line is a straight stroke.
type Line struct {
	X1          float64 `json:"x1"`
	Y1          float64 `json:"y1"`
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	StrokeWidth float64 `json:"stroke_width"`
}

// GlyphPath places a glyph with its origin at (X, Y). Size is the em size.
type GlyphPath struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Glyph glyph.ID `json:"glyph"`
	Size  float64  `json:"size"`
}

func (Line) primitive()      {}
func (GlyphPath) primitive() {}

// Sink receives primitives in drawing order.
type Sink interface {
	Emit(p Primitive)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(p Primitive)

// Emit calls f.
func (f SinkFunc) Emit(p Primitive) { f(p) }

// Collector is a [Sink] that keeps every primitive in memory.
type Collector struct {
	Primitives []Primitive
}

// Emit appends p.
func (c *Collector) Emit(p Primitive) { c.Primitives = append(c.Primitives, p) }

// Lines returns the collected lines.
func (c *Collector) Lines() []Line {
	var out []Line
	for _, p := range c.Primitives {
		if l, ok := p.(Line); ok {
			out = append(out, l)
		}
	}
	return out
}

// Glyphs returns the collected glyph placements.
func (c *Collector) Glyphs() []GlyphPath {
	var out []GlyphPath
	for _, p := range c.Primitives {
		if g, ok := p.(GlyphPath); ok {
			out = append(out, g)
		}
	}
	return out
}

// Bounds returns the union of all primitives' extents. Glyph extents come
// from gm; glyphs it does not know contribute their origin only.
func (c *Collector) Bounds(gm glyph.Metrics) (minX, minY, maxX, maxY float64) {
	first := true
	add := func(x0, y0, x1, y1 float64) {
		if first {
			minX, minY, maxX, maxY = x0, y0, x1, y1
			first = false
			return
		}
		minX, minY = min(minX, x0), min(minY, y0)
		maxX, maxY = max(maxX, x1), max(maxY, y1)
	}
	for _, p := range c.Primitives {
		switch p := p.(type) {
		case Line:
			h := p.StrokeWidth / 2
			add(min(p.X1, p.X2)-h, min(p.Y1, p.Y2)-h, max(p.X1, p.X2)+h, max(p.Y1, p.Y2)+h)
		case GlyphPath:
			b, err := gm.Bounds(p.Glyph, p.Size)
			if err != nil {
				add(p.X, p.Y, p.X, p.Y)
				continue
			}
			add(p.X+b.X, p.Y+b.Y, p.X+b.Right(), p.Y+b.Bottom())
		}
	}
	return minX, minY, maxX, maxY
}
