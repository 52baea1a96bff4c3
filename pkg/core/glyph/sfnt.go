package glyph

import (
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/engrave/pkg/errors"
)

// SFNT reads metrics and outlines from an OpenType or TrueType font. It
// implements both [Metrics] and [Outliner]. Glyphs are looked up by
// codepoint, so the font must be SMuFL compliant for music glyphs.
type SFNT struct {
	font *sfnt.Font
	name string

	mu  sync.Mutex
	buf sfnt.Buffer
}

// ParseSFNT parses font data.
func ParseSFNT(data []byte) (*SFNT, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse font")
	}
	s := &SFNT{font: f}
	if name, err := f.Name(&s.buf, sfnt.NameIDFamily); err == nil {
		s.name = name
	}
	return s, nil
}

// LoadSFNT reads and parses a font file.
func LoadSFNT(path string) (*SFNT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read font %s", path)
	}
	return ParseSFNT(data)
}

// Family returns the font family name, if the font declares one.
func (s *SFNT) Family() string { return s.name }

func ppem(size float64) fixed.Int26_6 {
	return fixed.Int26_6(size*64 + 0.5)
}

func unfix(v fixed.Int26_6) float64 { return float64(v) / 64 }

func (s *SFNT) index(id ID) (sfnt.GlyphIndex, error) {
	x, err := s.font.GlyphIndex(&s.buf, rune(id))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInternal, err, "glyph index for %s", id)
	}
	if x == 0 {
		return 0, errors.New(errors.ErrCodeGlyphNotFound, "font has no glyph %s", id)
	}
	return x, nil
}

// Bounds implements [Metrics].
func (s *SFNT) Bounds(id ID, size float64) (BoundingBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, err := s.index(id)
	if err != nil {
		return BoundingBox{}, err
	}
	r, _, err := s.font.GlyphBounds(&s.buf, x, ppem(size), font.HintingNone)
	if err != nil {
		return BoundingBox{}, errors.Wrap(errors.ErrCodeInternal, err, "bounds for %s", id)
	}
	return BoundingBox{
		X:      unfix(r.Min.X),
		Y:      unfix(r.Min.Y),
		Width:  unfix(r.Max.X - r.Min.X),
		Height: unfix(r.Max.Y - r.Min.Y),
	}, nil
}

// Outline implements [Outliner].
func (s *SFNT) Outline(id ID, size float64) (Outline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, err := s.index(id)
	if err != nil {
		return nil, err
	}
	segs, err := s.font.LoadGlyph(&s.buf, x, ppem(size), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "outline for %s", id)
	}
	out := make(Outline, 0, len(segs))
	for _, seg := range segs {
		var o Segment
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			o.Op = MoveTo
		case sfnt.SegmentOpLineTo:
			o.Op = LineTo
		case sfnt.SegmentOpQuadTo:
			o.Op = QuadTo
		case sfnt.SegmentOpCubeTo:
			o.Op = CubeTo
		}
		for i, a := range seg.Args {
			o.Args[i] = Point{X: unfix(a.X), Y: unfix(a.Y)}
		}
		out = append(out, o)
	}
	return out, nil
}
