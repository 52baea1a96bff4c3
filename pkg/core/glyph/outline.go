package glyph

import (
	"strconv"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
)

// SegmentOp is a path drawing operation.
type SegmentOp int

const (
	MoveTo SegmentOp = iota
	LineTo
	QuadTo
	CubeTo
)

// Point is a 2D point in user units, Y down.
type Point struct{ X, Y float64 }

// Segment is one path operation. MoveTo and LineTo use Args[0], QuadTo
// uses Args[0:2] and CubeTo uses all three.
type Segment struct {
	Op   SegmentOp
	Args [3]Point
}

// Outline is a sequence of closed contours. Each MoveTo starts a new
// contour and implicitly closes the previous one. Filled with the nonzero
// rule; holes wind the opposite way.
type Outline []Segment

// Translate returns a copy of o moved by (dx, dy).
func (o Outline) Translate(dx, dy float64) Outline {
	out := make(Outline, len(o))
	for i, s := range o {
		for j := range s.Args {
			s.Args[j].X += dx
			s.Args[j].Y += dy
		}
		out[i] = s
	}
	return out
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PathData renders the outline as SVG path data.
func (o Outline) PathData() string {
	var b strings.Builder
	pt := func(p Point) {
		b.WriteString(fmtFloat(p.X))
		b.WriteByte(' ')
		b.WriteString(fmtFloat(p.Y))
	}
	for i, s := range o {
		switch s.Op {
		case MoveTo:
			if i > 0 {
				b.WriteString("Z")
			}
			b.WriteString("M")
			pt(s.Args[0])
		case LineTo:
			b.WriteString("L")
			pt(s.Args[0])
		case QuadTo:
			b.WriteString("Q")
			pt(s.Args[0])
			b.WriteByte(' ')
			pt(s.Args[1])
		case CubeTo:
			b.WriteString("C")
			pt(s.Args[0])
			b.WriteByte(' ')
			pt(s.Args[1])
			b.WriteByte(' ')
			pt(s.Args[2])
		}
	}
	if len(o) > 0 {
		b.WriteString("Z")
	}
	return b.String()
}

// Outliner produces glyph outlines relative to the glyph origin.
type Outliner interface {
	Outline(id ID, size float64) (Outline, error)
}

// ============================================================================
// Fallback outlines
// ============================================================================

type fallback struct{}

// Fallback returns an [Outliner] that approximates each glyph with simple
// geometric shapes. It is used when no music font is configured, so
// raster output stays legible without one.
func Fallback() Outliner { return fallback{} }

// pen builds contours in staff-space units with Y up and converts them to
// user units on the fly.
type pen struct {
	s   float64
	out Outline
}

func (p *pen) pt(x, y float64) Point { return Point{X: x * p.s, Y: -y * p.s} }

func (p *pen) poly(xy ...float64) {
	for i := 0; i+1 < len(xy); i += 2 {
		op := LineTo
		if i == 0 {
			op = MoveTo
		}
		p.out = append(p.out, Segment{Op: op, Args: [3]Point{p.pt(xy[i], xy[i+1])}})
	}
}

func (p *pen) rect(x0, y0, x1, y1 float64) {
	p.poly(x0, y0, x1, y0, x1, y1, x0, y1)
}

// ellipse draws four cubic arcs, counter-clockwise unless hole is set.
func (p *pen) ellipse(cx, cy, rx, ry float64, hole bool) {
	const k = 0.5523
	if hole {
		ry = -ry
	}
	p.out = append(p.out, Segment{Op: MoveTo, Args: [3]Point{p.pt(cx+rx, cy)}})
	arcs := [4][6]float64{
		{cx + rx, cy + k*ry, cx + k*rx, cy + ry, cx, cy + ry},
		{cx - k*rx, cy + ry, cx - rx, cy + k*ry, cx - rx, cy},
		{cx - rx, cy - k*ry, cx - k*rx, cy - ry, cx, cy - ry},
		{cx + k*rx, cy - ry, cx + rx, cy - k*ry, cx + rx, cy},
	}
	for _, a := range arcs {
		p.out = append(p.out, Segment{Op: CubeTo, Args: [3]Point{
			p.pt(a[0], a[1]), p.pt(a[2], a[3]), p.pt(a[4], a[5]),
		}})
	}
}

func (p *pen) flag(down bool, offset float64) {
	sign := 1.0
	if down {
		sign = -1
	}
	y := func(v float64) float64 { return sign * (v - offset) }
	p.poly(0, y(0), 0.12, y(0), 1.0, y(-1.5), 0.75, y(-3.2), 0.82, y(-1.8), 0, y(-1.0))
}

func (fallback) Outline(id ID, size float64) (Outline, error) {
	p := &pen{s: StaffSpace(size)}
	switch id {
	case NoteheadBlack:
		p.ellipse(0.59, 0, 0.59, 0.5, false)
	case NoteheadHalf:
		p.ellipse(0.59, 0, 0.59, 0.5, false)
		p.ellipse(0.59, 0, 0.4, 0.26, true)
	case NoteheadWhole:
		p.ellipse(0.844, 0, 0.844, 0.532, false)
		p.ellipse(0.844, 0, 0.38, 0.3, true)
	case AugmentationDot:
		p.ellipse(0.2, 0, 0.2, 0.2, false)
	case AccidentalSharp:
		p.rect(0.2, -1.392, 0.32, 1.2)
		p.rect(0.66, -1.2, 0.78, 1.4)
		p.poly(0, -0.62, 0.996, -0.32, 0.996, -0.02, 0, -0.32)
		p.poly(0, 0.34, 0.996, 0.64, 0.996, 0.94, 0, 0.64)
	case AccidentalNatural:
		p.rect(0, -0.8, 0.12, 1.364)
		p.rect(0.552, -1.34, 0.672, 0.8)
		p.poly(0, -0.5, 0.672, -0.3, 0.672, -0.08, 0, -0.28)
		p.poly(0, 0.28, 0.672, 0.48, 0.672, 0.7, 0, 0.5)
	case AccidentalFlat:
		p.rect(0, -0.7, 0.12, 1.756)
		p.ellipse(0.45, -0.15, 0.45, 0.55, false)
		p.ellipse(0.4, -0.15, 0.28, 0.38, true)
	case AccidentalDoubleFlat:
		for _, dx := range []float64{0, 0.74} {
			p.rect(dx, -0.7, dx+0.12, 1.748)
			p.ellipse(dx+0.45, -0.15, 0.45, 0.55, false)
			p.ellipse(dx+0.4, -0.15, 0.28, 0.38, true)
		}
	case AccidentalDoubleSharp:
		p.poly(0, -0.5, 0.16, -0.5, 0.988, 0.35, 0.988, 0.508, 0.83, 0.508, 0, -0.34)
		p.poly(0, 0.508, 0, 0.35, 0.83, -0.5, 0.988, -0.5, 0.988, -0.34, 0.16, 0.508)
	case RestWhole:
		p.rect(0, -0.54, 1.128, 0)
	case RestHalf:
		p.rect(0, 0, 1.128, 0.54)
	case RestQuarter:
		p.poly(0.3, 1.49, 0.95, 0.6, 0.55, 0, 1.0, -0.8, 0.45, -1.5, 0.6, -0.85, 0.1, 0, 0.5, 0.6)
	case Rest8th:
		p.ellipse(0.25, 0.45, 0.25, 0.22, false)
		p.poly(0.4, 0.35, 0.988, 0.696, 0.5, -1.004, 0.36, -1.004, 0.78, 0.42, 0.4, 0.25)
	case Rest16th:
		p.ellipse(0.4, 0.45, 0.25, 0.22, false)
		p.ellipse(0.25, -0.35, 0.25, 0.22, false)
		p.poly(0.55, 0.35, 1.28, 0.716, 0.5, -2, 0.36, -2, 1.06, 0.42, 0.55, 0.25)
	case Flag8thUp:
		p.flag(false, 0)
	case Flag16thUp:
		p.flag(false, 0)
		p.flag(false, 0.75)
	case Flag8thDown:
		p.flag(true, 0)
	case Flag16thDown:
		p.flag(true, 0)
		p.flag(true, 0.75)
	default:
		b, ok := bravuraBoxes[id]
		if !ok {
			return nil, errors.New(errors.ErrCodeGlyphNotFound, "no outline for glyph %s", id)
		}
		// clefs and unknown symbols are drawn as a framed box
		p.rect(b.swX, b.swY, b.neX, b.neY)
		const t = 0.15
		p.poly(b.swX+t, b.swY+t, b.swX+t, b.neY-t, b.neX-t, b.neY-t, b.neX-t, b.swY+t)
	}
	return p.out, nil
}
