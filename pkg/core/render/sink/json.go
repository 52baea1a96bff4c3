package sink

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	title    string
	renderer bool
}

// WithJSONTitle records the document title.
func WithJSONTitle(title string) JSONOption { return func(r *jsonRenderer) { r.title = title } }

// WithJSONRenderer includes the renderer constants so the primitives can be
// reproduced.
func WithJSONRenderer() JSONOption { return func(r *jsonRenderer) { r.renderer = true } }

type jsonOutput struct {
	Title      string          `json:"title,omitempty"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Rows       int             `json:"rows"`
	Measures   int             `json:"measures"`
	Renderer   *staff.Renderer `json:"renderer,omitempty"`
	Primitives []jsonPrimitive `json:"primitives"`
}

type jsonPrimitive struct {
	Type string `json:"type"` // "line" or "glyph"

	X1          float64 `json:"x1,omitempty"`
	Y1          float64 `json:"y1,omitempty"`
	X2          float64 `json:"x2,omitempty"`
	Y2          float64 `json:"y2,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`

	X         float64  `json:"x,omitempty"`
	Y         float64  `json:"y,omitempty"`
	Glyph     glyph.ID `json:"glyph,omitempty"`
	Codepoint string   `json:"codepoint,omitempty"`
	Size      float64  `json:"size,omitempty"`
}

// RenderJSON exports the primitive stream as a pretty-printed JSON
// document, in drawing order. This is the format for external renderers
// that want the engraver's placement without its output formats.
//
// RenderJSON does not modify s and is safe to call concurrently.
func RenderJSON(s *staff.Staff, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Title:      r.title,
		Width:      s.Width(),
		Height:     s.Height(),
		Rows:       len(s.Rows),
		Measures:   s.Measures(),
		Primitives: []jsonPrimitive{},
	}
	if r.renderer {
		rr := s.Renderer
		out.Renderer = &rr
	}

	s.Draw(0, 0, staff.SinkFunc(func(p staff.Primitive) {
		out.Primitives = append(out.Primitives, toJSONPrimitive(p))
	}))

	return json.MarshalIndent(out, "", "  ")
}

func toJSONPrimitive(p staff.Primitive) jsonPrimitive {
	switch p := p.(type) {
	case staff.Line:
		return jsonPrimitive{Type: "line", X1: p.X1, Y1: p.Y1, X2: p.X2, Y2: p.Y2, StrokeWidth: p.StrokeWidth}
	case staff.GlyphPath:
		return jsonPrimitive{
			Type:      "glyph",
			X:         p.X,
			Y:         p.Y,
			Glyph:     p.Glyph,
			Codepoint: fmt.Sprintf("U+%04X", rune(p.Glyph)),
			Size:      p.Size,
		}
	}
	return jsonPrimitive{Type: "unknown"}
}
