// Package sink turns a laid-out [staff.Staff] into output documents.
//
// # Overview
//
// Every sink replays [staff.Staff.Draw] into its own [staff.Sink], so all
// formats see the same primitives in the same order:
//
//   - SVG: [RenderSVG], glyphs as font text or as outline paths
//   - JSON: [RenderJSON], the raw primitive stream for external renderers
//   - PNG: [RenderPNG], rasterized in-process with golang.org/x/image/vector
//   - PDF: [RenderPDF], SVG converted by rsvg-convert
//
// # Glyphs
//
// By default SVG glyphs are <text> elements in a SMuFL font family and
// depend on the viewer having the font. [WithFont] embeds a loaded font;
// [WithOutliner] replaces text with filled paths. Raster and PDF output
// always use outlines, falling back to [glyph.Fallback] shapes when no font
// is configured:
//
//	svg, err := sink.RenderSVG(s, sink.WithOutliner(font))
//	png, err := sink.RenderPNG(s, sink.WithScale(2), sink.WithPNGOutliner(font))
//
// PDF export requires librsvg:
//   - macOS: brew install librsvg
//   - Linux: apt install librsvg2-bin
package sink
