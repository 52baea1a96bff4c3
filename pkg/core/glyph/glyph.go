// Package glyph identifies music symbols and answers geometric questions
// about them.
//
// Glyphs are identified by their Standard Music Font Layout (SMuFL)
// codepoint, so an [ID] can be handed to any SMuFL font (Bravura, Petaluma,
// Leland) unchanged. The layout engine never parses font files: it asks a
// [Metrics] provider for a glyph's [BoundingBox] at a given size and emits
// primitives that reference the glyph by ID.
//
// Two providers are included:
//
//   - [Bravura]: a built-in table of Bravura bounding boxes, needing no font
//   - [SFNT]: metrics and outlines read from an OpenType font file
//
// Sinks that must draw actual shapes (PNG, outlined SVG) use an [Outliner];
// [Fallback] supplies simple geometric outlines when no font is available.
//
// # Coordinates
//
// All boxes and outlines are expressed in user units with the Y axis
// growing downward, relative to the glyph origin. SMuFL sizes are em
// sizes: one staff space is a quarter of the size.
package glyph

import "fmt"

// ID is a SMuFL codepoint.
type ID rune

// SMuFL codepoints used by the engraver.
const (
	GClef ID = 0xE050
	CClef ID = 0xE05C
	FClef ID = 0xE062

	NoteheadWhole ID = 0xE0A2
	NoteheadHalf  ID = 0xE0A3
	NoteheadBlack ID = 0xE0A4

	AugmentationDot ID = 0xE1E7

	Flag8thUp    ID = 0xE240
	Flag8thDown  ID = 0xE241
	Flag16thUp   ID = 0xE242
	Flag16thDown ID = 0xE243

	AccidentalFlat        ID = 0xE260
	AccidentalNatural     ID = 0xE261
	AccidentalSharp       ID = 0xE262
	AccidentalDoubleSharp ID = 0xE263
	AccidentalDoubleFlat  ID = 0xE264

	RestWhole   ID = 0xE4E3
	RestHalf    ID = 0xE4E4
	RestQuarter ID = 0xE4E5
	Rest8th     ID = 0xE4E6
	Rest16th    ID = 0xE4E7
)

var names = map[ID]string{
	GClef:                 "gClef",
	CClef:                 "cClef",
	FClef:                 "fClef",
	NoteheadWhole:         "noteheadWhole",
	NoteheadHalf:          "noteheadHalf",
	NoteheadBlack:         "noteheadBlack",
	AugmentationDot:       "augmentationDot",
	Flag8thUp:             "flag8thUp",
	Flag8thDown:           "flag8thDown",
	Flag16thUp:            "flag16thUp",
	Flag16thDown:          "flag16thDown",
	AccidentalFlat:        "accidentalFlat",
	AccidentalNatural:     "accidentalNatural",
	AccidentalSharp:       "accidentalSharp",
	AccidentalDoubleSharp: "accidentalDoubleSharp",
	AccidentalDoubleFlat:  "accidentalDoubleFlat",
	RestWhole:             "restWhole",
	RestHalf:              "restHalf",
	RestQuarter:           "restQuarter",
	Rest8th:               "rest8th",
	Rest16th:              "rest16th",
}

// Name returns the SMuFL glyph name, or U+XXXX for unnamed codepoints.
func (id ID) Name() string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("U+%04X", rune(id))
}

// String implements fmt.Stringer.
func (id ID) String() string { return id.Name() }

// MarshalText encodes the glyph by SMuFL name.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Name()), nil
}

// UnmarshalText accepts SMuFL names and U+XXXX forms.
func (id *ID) UnmarshalText(b []byte) error {
	s := string(b)
	for k, n := range names {
		if n == s {
			*id = k
			return nil
		}
	}
	var r rune
	if _, err := fmt.Sscanf(s, "U+%X", &r); err != nil {
		return fmt.Errorf("unknown glyph %q", s)
	}
	*id = ID(r)
	return nil
}

// StaffSpace returns the staff-space length for a glyph em size.
func StaffSpace(size float64) float64 { return size / 4 }

// BoundingBox is an axis-aligned box relative to a glyph origin, Y down.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the right edge.
func (b BoundingBox) Right() float64 { return b.X + b.Width }

// Bottom returns the bottom edge.
func (b BoundingBox) Bottom() float64 { return b.Y + b.Height }

// CenterY returns the vertical midpoint.
func (b BoundingBox) CenterY() float64 { return b.Y + b.Height/2 }

// Metrics looks up glyph bounding boxes. Implementations must be pure and
// safe for concurrent use.
type Metrics interface {
	Bounds(id ID, size float64) (BoundingBox, error)
}

// MetricsFunc adapts a function to [Metrics].
type MetricsFunc func(id ID, size float64) (BoundingBox, error)

// Bounds calls f.
func (f MetricsFunc) Bounds(id ID, size float64) (BoundingBox, error) { return f(id, size) }
