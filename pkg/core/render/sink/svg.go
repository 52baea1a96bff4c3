package sink

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/fonts"
)

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	outliner   glyph.Outliner
	font       *fonts.Font
	fontFamily string
	title      string
	background string
	color      string
}

// WithOutliner draws glyphs as filled paths from o instead of font text.
// The output then renders the same on any viewer.
func WithOutliner(o glyph.Outliner) SVGOption { return func(r *svgRenderer) { r.outliner = o } }

// WithFont embeds f as an @font-face rule and uses its family for glyph
// text.
func WithFont(f *fonts.Font) SVGOption { return func(r *svgRenderer) { r.font = f } }

// WithFontFamily sets the CSS font-family of glyph text.
func WithFontFamily(family string) SVGOption { return func(r *svgRenderer) { r.fontFamily = family } }

// WithTitle adds a <title> element.
func WithTitle(title string) SVGOption { return func(r *svgRenderer) { r.title = title } }

// WithBackground fills the document with a CSS color.
func WithBackground(color string) SVGOption { return func(r *svgRenderer) { r.background = color } }

// WithColor sets the stroke and fill color of all primitives.
func WithColor(color string) SVGOption { return func(r *svgRenderer) { r.color = color } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{fontFamily: fonts.FallbackFontFamily, color: "black"}
	for _, opt := range opts {
		opt(&r)
	}
	if r.font != nil {
		r.fontFamily = fmt.Sprintf("'%s'", r.font.Family())
	}
	return r
}

// RenderSVG draws the staff as an SVG document sized to the staff's width
// and height. It fails only when an outliner cannot outline a glyph.
func RenderSVG(s *staff.Staff, opts ...SVGOption) ([]byte, error) {
	r := newSVGRenderer(opts...)
	w, h := s.Width(), s.Height()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(r.title))
	}
	if r.font != nil && r.outliner == nil {
		fmt.Fprintf(&buf, "  <defs><style>%s</style></defs>\n", r.font.FaceCSS())
	}
	if r.background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(r.background))
	}

	color := html.EscapeString(r.color)
	fmt.Fprintf(&buf, `  <g stroke="%s" fill="%s" stroke-linecap="butt">`+"\n", color, color)
	sk := &svgSink{buf: &buf, r: &r}
	s.Draw(0, 0, sk)
	buf.WriteString("  </g>\n")
	buf.WriteString("</svg>\n")

	if sk.err != nil {
		return nil, sk.err
	}
	return buf.Bytes(), nil
}

// svgSink writes primitives as they arrive. The first outline error is
// kept and later glyphs are skipped.
type svgSink struct {
	buf *bytes.Buffer
	r   *svgRenderer
	err error
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }

func (s *svgSink) Emit(p staff.Primitive) {
	switch p := p.(type) {
	case staff.Line:
		fmt.Fprintf(s.buf, `    <line x1="%s" y1="%s" x2="%s" y2="%s" stroke-width="%s"/>`+"\n",
			num(p.X1), num(p.Y1), num(p.X2), num(p.Y2), num(p.StrokeWidth))
	case staff.GlyphPath:
		if s.r.outliner == nil {
			fmt.Fprintf(s.buf, `    <text x="%s" y="%s" font-family="%s" font-size="%s" stroke="none" data-glyph="%s">&#x%X;</text>`+"\n",
				num(p.X), num(p.Y), html.EscapeString(s.r.fontFamily), num(p.Size), p.Glyph.Name(), rune(p.Glyph))
			return
		}
		if s.err != nil {
			return
		}
		o, err := s.r.outliner.Outline(p.Glyph, p.Size)
		if err != nil {
			s.err = err
			return
		}
		fmt.Fprintf(s.buf, `    <path d="%s" stroke="none" data-glyph="%s"/>`+"\n",
			o.Translate(p.X, p.Y).PathData(), p.Glyph.Name())
	}
}
