package glyph

import "github.com/matzehuels/engrave/pkg/errors"

// box is a SMuFL bounding box in staff spaces, Y up.
type box struct {
	swX, swY, neX, neY float64
}

// Values from the Bravura font metadata (bravura_metadata.json).
var bravuraBoxes = map[ID]box{
	GClef:                 {0, -2.632, 2.684, 4.392},
	CClef:                 {0, -2.024, 2.796, 2.024},
	FClef:                 {-0.02, -2.54, 2.736, 1.048},
	NoteheadWhole:         {0, -0.532, 1.688, 0.532},
	NoteheadHalf:          {0, -0.5, 1.18, 0.5},
	NoteheadBlack:         {0, -0.5, 1.18, 0.5},
	AugmentationDot:       {0, -0.2, 0.4, 0.2},
	Flag8thUp:             {0, -3.24, 1.056, 0.036},
	Flag8thDown:           {0, -0.056, 1.224, 3.232},
	Flag16thUp:            {0, -3.252, 1.116, 0.036},
	Flag16thDown:          {0, -0.02, 1.164, 3.248},
	AccidentalFlat:        {0, -0.7, 0.904, 1.756},
	AccidentalNatural:     {0, -1.34, 0.672, 1.364},
	AccidentalSharp:       {0, -1.392, 0.996, 1.4},
	AccidentalDoubleSharp: {0, -0.5, 0.988, 0.508},
	AccidentalDoubleFlat:  {0, -0.7, 1.644, 1.748},
	RestWhole:             {0, -0.54, 1.128, 0.036},
	RestHalf:              {0, -0.008, 1.128, 0.568},
	RestQuarter:           {0.004, -1.5, 1.08, 1.492},
	Rest8th:               {0, -1.004, 0.988, 0.696},
	Rest16th:              {0, -2, 1.28, 0.716},
}

func (b box) scaled(size float64) BoundingBox {
	s := StaffSpace(size)
	return BoundingBox{
		X:      b.swX * s,
		Y:      -b.neY * s,
		Width:  (b.neX - b.swX) * s,
		Height: (b.neY - b.swY) * s,
	}
}

type bravura struct{}

// Bravura returns metrics for the glyphs the engraver uses, taken from the
// Bravura font. No font file is needed.
func Bravura() Metrics { return bravura{} }

func (bravura) Bounds(id ID, size float64) (BoundingBox, error) {
	b, ok := bravuraBoxes[id]
	if !ok {
		return BoundingBox{}, errors.New(errors.ErrCodeGlyphNotFound, "no metrics for glyph %s", id)
	}
	return b.scaled(size), nil
}
