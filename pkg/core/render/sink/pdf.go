package sink

import (
	"context"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
)

// PDFOption configures PDF rendering.
type PDFOption func(*pdfRenderer)

type pdfRenderer struct {
	svgOpts []SVGOption
}

// WithPDFSVGOptions passes options through to the underlying SVG renderer.
func WithPDFSVGOptions(opts ...SVGOption) PDFOption {
	return func(r *pdfRenderer) { r.svgOpts = opts }
}

// RenderPDF renders the staff as PDF via SVG conversion. Glyphs are drawn
// as outlines ([glyph.Fallback] unless an outliner is passed through) since
// rsvg-convert rarely has a music font available.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, s *staff.Staff, opts ...PDFOption) ([]byte, error) {
	r := pdfRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	svgOpts := append([]SVGOption{WithOutliner(glyph.Fallback()), WithBackground("white")}, r.svgOpts...)
	svg, err := RenderSVG(s, svgOpts...)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
