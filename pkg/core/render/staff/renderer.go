package staff

import (
	"math"

	"github.com/matzehuels/engrave/pkg/errors"
)

// Renderer holds the geometric constants of a layout. All values are in
// user units (SVG pixels). The zero value is degenerate; start from
// [DefaultRenderer].
type Renderer struct {
	StaffWidth          float64 `json:"staff_width" toml:"staff_width"`
	NoteRadiusX         float64 `json:"note_radius_x" toml:"note_radius_x"`
	NoteRadiusY         float64 `json:"note_radius_y" toml:"note_radius_y"`
	StrokeWidth         float64 `json:"stroke_width" toml:"stroke_width"`
	Padding             float64 `json:"padding" toml:"padding"`
	AccidentalGlyphSize float64 `json:"accidental_glyph_size" toml:"accidental_glyph_size"`
	MinSpacingPerBeat   float64 `json:"min_spacing_per_beat" toml:"min_spacing_per_beat"`
	DocumentPadding     float64 `json:"document_padding" toml:"document_padding"`
	RowSpacing          float64 `json:"row_spacing" toml:"row_spacing"`
	StemLength          float64 `json:"stem_length" toml:"stem_length"`
	GlyphSize           float64 `json:"glyph_size" toml:"glyph_size"`
}

// Default geometry. A glyph size of 40 makes one staff space (10) equal to
// two vertical note radii.
const (
	DefaultStaffWidth          = 800.0
	DefaultNoteRadiusX         = 6.0
	DefaultNoteRadiusY         = 5.0
	DefaultStrokeWidth         = 1.0
	DefaultPadding             = 8.0
	DefaultAccidentalGlyphSize = 40.0
	DefaultMinSpacingPerBeat   = 3.0
	DefaultDocumentPadding     = 20.0
	DefaultRowSpacing          = 100.0
	DefaultStemLength          = 35.0
	DefaultGlyphSize           = 40.0
)

// DefaultRenderer returns the default geometry.
func DefaultRenderer() Renderer {
	return Renderer{
		StaffWidth:          DefaultStaffWidth,
		NoteRadiusX:         DefaultNoteRadiusX,
		NoteRadiusY:         DefaultNoteRadiusY,
		StrokeWidth:         DefaultStrokeWidth,
		Padding:             DefaultPadding,
		AccidentalGlyphSize: DefaultAccidentalGlyphSize,
		MinSpacingPerBeat:   DefaultMinSpacingPerBeat,
		DocumentPadding:     DefaultDocumentPadding,
		RowSpacing:          DefaultRowSpacing,
		StemLength:          DefaultStemLength,
		GlyphSize:           DefaultGlyphSize,
	}
}

func (r Renderer) fields() []struct {
	name string
	v    float64
} {
	return []struct {
		name string
		v    float64
	}{
		{"staff_width", r.StaffWidth},
		{"note_radius_x", r.NoteRadiusX},
		{"note_radius_y", r.NoteRadiusY},
		{"stroke_width", r.StrokeWidth},
		{"padding", r.Padding},
		{"accidental_glyph_size", r.AccidentalGlyphSize},
		{"min_spacing_per_beat", r.MinSpacingPerBeat},
		{"document_padding", r.DocumentPadding},
		{"row_spacing", r.RowSpacing},
		{"stem_length", r.StemLength},
		{"glyph_size", r.GlyphSize},
	}
}

// Validate returns a DEGENERATE_CONFIGURATION error if any constant is
// negative, NaN or infinite.
func (r Renderer) Validate() error {
	for _, f := range r.fields() {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return errors.New(errors.ErrCodeDegenerateConfiguration, "%s must be a non-negative finite number, got %v", f.name, f.v)
		}
	}
	return nil
}

// WithDefaults fills zero fields from [DefaultRenderer]. Configuration
// files use it so that omitted keys keep their defaults.
func (r Renderer) WithDefaults() Renderer {
	d := DefaultRenderer()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&r.StaffWidth, d.StaffWidth)
	fill(&r.NoteRadiusX, d.NoteRadiusX)
	fill(&r.NoteRadiusY, d.NoteRadiusY)
	fill(&r.StrokeWidth, d.StrokeWidth)
	fill(&r.Padding, d.Padding)
	fill(&r.AccidentalGlyphSize, d.AccidentalGlyphSize)
	fill(&r.MinSpacingPerBeat, d.MinSpacingPerBeat)
	fill(&r.DocumentPadding, d.DocumentPadding)
	fill(&r.RowSpacing, d.RowSpacing)
	fill(&r.StemLength, d.StemLength)
	fill(&r.GlyphSize, d.GlyphSize)
	return r
}

// Staff geometry. Index 0 is the bottom line; lines sit on even indices.
const (
	BottomLine = 0
	MiddleLine = 4
	TopLine    = 8

	// Notes strictly outside [LowestFree, HighestFree] need ledger lines.
	LowestFree  = -2
	HighestFree = 10

	// MaxIndex bounds the staff indices the engine accepts.
	MaxIndex = 40
)

// Step is the vertical distance between adjacent staff indices.
func (r Renderer) Step() float64 { return r.NoteRadiusY }

// StaffHeight is the distance from the top line to the bottom line.
func (r Renderer) StaffHeight() float64 { return TopLine * r.Step() }

// IndexY returns the offset of a staff index below the top line.
func (r Renderer) IndexY(index int) float64 {
	return float64(TopLine-index) * r.Step()
}

func (r Renderer) accidentalGap() float64 { return r.NoteRadiusX / 2 }

func (r Renderer) staggerGap() float64 { return r.StrokeWidth }
