package sink

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/vector"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/errors"
)

// MaxPixels bounds the canvas of [Rasterize]. At four bytes per pixel
// this is 128 MiB.
const MaxPixels = 1 << 25

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	outliner   glyph.Outliner
	scale      float64
	background color.Color
	foreground color.Color
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// WithPNGOutliner sets the glyph outlines. The default is
// [glyph.Fallback]; pass a loaded font for faithful symbols.
func WithPNGOutliner(o glyph.Outliner) PNGOption {
	return func(r *pngRenderer) { r.outliner = o }
}

// WithTransparent leaves the background transparent instead of white.
func WithTransparent() PNGOption {
	return func(r *pngRenderer) { r.background = color.Transparent }
}

// RenderPNG rasterizes the staff. Unlike PDF export it needs no external
// tools.
func RenderPNG(s *staff.Staff, opts ...PNGOption) ([]byte, error) {
	img, err := Rasterize(s, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

// Rasterize draws the staff into a new image.
func Rasterize(s *staff.Staff, opts ...PNGOption) (*image.RGBA, error) {
	r := pngRenderer{
		outliner:   glyph.Fallback(),
		scale:      2.0,
		background: color.White,
		foreground: color.Black,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if !(r.scale > 0) || math.IsInf(r.scale, 0) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %v", r.scale)
	}

	fw, fh := math.Ceil(s.Width()*r.scale), math.Ceil(s.Height()*r.scale)
	if !(fw*fh <= MaxPixels) {
		return nil, errors.New(errors.ErrCodeInvalidInput,
			"image of %.0fx%.0f pixels exceeds the limit of %d; lower the scale or the staff width", fw, fh, MaxPixels)
	}
	w, h := int(fw), int(fh)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	rs := &rasterSink{dst: img, src: image.NewUniform(r.foreground), r: &r}
	s.Draw(0, 0, rs)
	if rs.err != nil {
		return nil, rs.err
	}
	return img, nil
}

// rasterSink fills each primitive separately so overlapping shapes of
// opposite winding never cancel out.
type rasterSink struct {
	dst *image.RGBA
	src image.Image
	r   *pngRenderer
	z   vector.Rasterizer
	err error
}

func (rs *rasterSink) Emit(p staff.Primitive) {
	if rs.err != nil {
		return
	}
	k := rs.r.scale
	switch p := p.(type) {
	case staff.Line:
		rs.fill(lineOutline(p).scale(k))
	case staff.GlyphPath:
		o, err := rs.r.outliner.Outline(p.Glyph, p.Size)
		if err != nil {
			rs.err = err
			return
		}
		rs.fill(path(o.Translate(p.X, p.Y)).scale(k))
	}
}

// path is an outline in pixel space.
type path glyph.Outline

func (o path) scale(k float64) path {
	out := make(path, len(o))
	for i, s := range o {
		for j := range s.Args {
			s.Args[j].X *= k
			s.Args[j].Y *= k
		}
		out[i] = s
	}
	return out
}

func (o path) bounds() image.Rectangle {
	if len(o) == 0 {
		return image.Rectangle{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range o {
		n := 1
		switch s.Op {
		case glyph.QuadTo:
			n = 2
		case glyph.CubeTo:
			n = 3
		}
		for _, a := range s.Args[:n] {
			minX, minY = math.Min(minX, a.X), math.Min(minY, a.Y)
			maxX, maxY = math.Max(maxX, a.X), math.Max(maxY, a.Y)
		}
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func (rs *rasterSink) fill(o path) {
	rect := o.bounds().Intersect(rs.dst.Bounds())
	if rect.Empty() {
		return
	}
	dx, dy := float32(rect.Min.X), float32(rect.Min.Y)
	pt := func(p glyph.Point) (float32, float32) { return float32(p.X) - dx, float32(p.Y) - dy }

	z := &rs.z
	z.Reset(rect.Dx(), rect.Dy())
	open := false
	for _, s := range o {
		switch s.Op {
		case glyph.MoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(s.Args[0]))
			open = true
		case glyph.LineTo:
			z.LineTo(pt(s.Args[0]))
		case glyph.QuadTo:
			x1, y1 := pt(s.Args[0])
			x2, y2 := pt(s.Args[1])
			z.QuadTo(x1, y1, x2, y2)
		case glyph.CubeTo:
			x1, y1 := pt(s.Args[0])
			x2, y2 := pt(s.Args[1])
			x3, y3 := pt(s.Args[2])
			z.CubeTo(x1, y1, x2, y2, x3, y3)
		}
	}
	if open {
		z.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	draw.DrawMask(rs.dst, rect, rs.src, image.Point{}, mask, image.Point{}, draw.Over)
}

// lineOutline turns a stroked line into a filled quadrilateral. Lines thinner
// than a pixel at the output scale are still drawn.
func lineOutline(l staff.Line) path {
	dx, dy := l.X2-l.X1, l.Y2-l.Y1
	n := math.Hypot(dx, dy)
	if n == 0 {
		return nil
	}
	hw := l.StrokeWidth / 2
	nx, ny := -dy/n*hw, dx/n*hw
	pt := func(x, y float64) [3]glyph.Point { return [3]glyph.Point{{X: x, Y: y}} }
	return path{
		{Op: glyph.MoveTo, Args: pt(l.X1+nx, l.Y1+ny)},
		{Op: glyph.LineTo, Args: pt(l.X2+nx, l.Y2+ny)},
		{Op: glyph.LineTo, Args: pt(l.X2-nx, l.Y2-ny)},
		{Op: glyph.LineTo, Args: pt(l.X1-nx, l.Y1-ny)},
	}
}
