package staff

import (
	"cmp"
	"slices"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

var accidentalGlyphs = map[score.Accidental]glyph.ID{
	score.Natural:     glyph.AccidentalNatural,
	score.Sharp:       glyph.AccidentalSharp,
	score.Flat:        glyph.AccidentalFlat,
	score.DoubleSharp: glyph.AccidentalDoubleSharp,
	score.DoubleFlat:  glyph.AccidentalDoubleFlat,
}

// accidentalY returns the glyph origin for an accidental on a note at
// noteY. Flats keep their origin on the note so the bowl encloses it;
// everything else is centred on the note.
func accidentalY(a score.Accidental, noteY float64, b glyph.BoundingBox) float64 {
	if a == score.Flat || a == score.DoubleFlat {
		return noteY
	}
	return noteY - b.CenterY()
}

func headGlyph(k score.DurationKind) glyph.ID {
	switch k {
	case score.Whole:
		return glyph.NoteheadWhole
	case score.Half:
		return glyph.NoteheadHalf
	}
	return glyph.NoteheadBlack
}

func flagGlyph(k score.DurationKind, up bool) (glyph.ID, bool) {
	switch {
	case k == score.Eighth && up:
		return glyph.Flag8thUp, true
	case k == score.Eighth:
		return glyph.Flag8thDown, true
	case k == score.Sixteenth && up:
		return glyph.Flag16thUp, true
	case k == score.Sixteenth:
		return glyph.Flag16thDown, true
	}
	return 0, false
}

// normalizeNotes sorts notes bottom to top and drops exact duplicates, so
// that every later decision is independent of input order. One staff
// index cannot carry two different accidentals: both heads would share a
// position.
func normalizeNotes(notes []score.PitchedNote) ([]score.PitchedNote, error) {
	out := slices.Clone(notes)
	slices.SortFunc(out, func(a, b score.PitchedNote) int {
		return cmp.Or(cmp.Compare(a.Index, b.Index), cmp.Compare(a.Accidental, b.Accidental))
	})
	out = slices.Compact(out)
	for i, n := range out {
		if n.Index < -MaxIndex || n.Index > MaxIndex {
			return nil, errors.New(errors.ErrCodeInvalidInput, "staff index %d outside [-%d, %d]", n.Index, MaxIndex, MaxIndex)
		}
		if i > 0 && out[i-1].Index == n.Index {
			return nil, errors.New(errors.ErrCodeInvalidInput, "staff index %d has both %s and %s", n.Index, out[i-1].Accidental, n.Accidental)
		}
	}
	return out, nil
}

// StemUp reports whether a group whose lowest note sits at index lowest
// gets a stem above its heads.
func StemUp(lowest int) bool { return lowest < MiddleLine }

// NeedsLedger reports whether a note at index needs ledger lines.
func NeedsLedger(index int) bool { return index < LowestFree || index > HighestFree }

// assignColumns places every note on one side of the stem. Notes with a
// neighbour one step away alternate by parity; the rest sit opposite the
// stem.
func assignColumns(notes []score.PitchedNote, up bool) (map[int]Column, bool) {
	present := make(map[int]bool, len(notes))
	for _, n := range notes {
		present[n.Index] = true
	}
	cols := make(map[int]Column, len(notes))
	staggered := false
	for _, n := range notes {
		switch {
		case present[n.Index-1] || present[n.Index+1]:
			staggered = true
			if n.Index&1 == 1 {
				cols[n.Index] = LeftColumn
			} else {
				cols[n.Index] = RightColumn
			}
		case up:
			cols[n.Index] = LeftColumn
		default:
			cols[n.Index] = RightColumn
		}
	}
	return cols, staggered
}

// ledgerIndices lists the ledger positions needed to reach the notes of
// one column, bottom to top.
func ledgerIndices(lo, hi int) []int {
	var out []int
	if lo < LowestFree {
		for k := LowestFree; k >= lo; k -= 2 {
			out = append(out, k)
		}
		slices.Reverse(out)
	}
	if hi > HighestFree {
		for k := HighestFree; k <= hi; k += 2 {
			out = append(out, k)
		}
	}
	return out
}

func layoutNotes(d score.Duration, in []score.PitchedNote, r Renderer, gm glyph.Metrics) (Item, error) {
	notes, err := normalizeNotes(in)
	if err != nil {
		return Item{}, err
	}
	if len(notes) == 0 {
		return Item{}, errors.New(errors.ErrCodeEmptyChord, "chord has no notes")
	}

	rx := r.NoteRadiusX
	step := r.Step()
	lo, hi := notes[0].Index, notes[len(notes)-1].Index

	it := Item{Kind: ItemNotes, Duration: d, StemUp: StemUp(lo)}

	// accidental column
	var accW float64
	accBounds := make(map[score.Accidental]glyph.BoundingBox)
	for _, n := range notes {
		if n.Accidental == score.NoAccidental {
			continue
		}
		if _, ok := accBounds[n.Accidental]; ok {
			continue
		}
		b, err := gm.Bounds(accidentalGlyphs[n.Accidental], r.AccidentalGlyphSize)
		if err != nil {
			return Item{}, err
		}
		accBounds[n.Accidental] = b
		accW = max(accW, b.Width)
	}
	accCol := 0.0
	if len(accBounds) > 0 {
		accCol = accW + r.accidentalGap()
	}

	cols, staggered := assignColumns(notes, it.StemUp)
	it.Staggered = staggered

	ledgered := NeedsLedger(lo) || NeedsLedger(hi)
	hx := accCol
	if ledgered {
		hx += rx / 2
	}
	colX := func(c Column) float64 {
		if staggered && c == RightColumn {
			return hx + 2*rx + r.staggerGap()
		}
		return hx
	}
	headsRight := hx + 2*rx
	if staggered {
		headsRight += 2*rx + r.staggerGap()
	}

	// heads
	hg := headGlyph(d.Kind)
	hb, err := gm.Bounds(hg, r.GlyphSize)
	if err != nil {
		return Item{}, err
	}
	for _, n := range notes {
		c := cols[n.Index]
		it.Heads = append(it.Heads, Head{
			Index:  n.Index,
			Column: c,
			X:      colX(c) + rx - (hb.X + hb.Width/2),
			Y:      r.IndexY(n.Index),
			Glyph:  hg,
			Size:   r.GlyphSize,
		})
	}

	// accidentals, right-aligned against the heads
	for _, n := range notes {
		b, ok := accBounds[n.Accidental]
		if !ok {
			continue
		}
		it.Accidentals = append(it.Accidentals, Mark{
			Glyph: accidentalGlyphs[n.Accidental],
			X:     accW - b.Right(),
			Y:     accidentalY(n.Accidental, r.IndexY(n.Index), b),
			Size:  r.AccidentalGlyphSize,
		})
	}

	// ledger lines, per column
	if ledgered {
		type span struct {
			lo, hi int
			ok     bool
		}
		var spans [2]span
		for _, n := range notes {
			s := &spans[cols[n.Index]]
			if !s.ok {
				*s = span{lo: n.Index, hi: n.Index, ok: true}
				continue
			}
			s.lo, s.hi = min(s.lo, n.Index), max(s.hi, n.Index)
		}
		need := make(map[int][2]bool)
		for c, s := range spans {
			if !s.ok {
				continue
			}
			for _, k := range ledgerIndices(s.lo, s.hi) {
				v := need[k]
				v[c] = true
				need[k] = v
			}
		}
		keys := make([]int, 0, len(need))
		for k := range need {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		ext := rx / 2
		for _, k := range keys {
			v := need[k]
			l := Ledger{Index: k, Y: r.IndexY(k)}
			switch {
			case v[LeftColumn] && v[RightColumn]:
				l.X1, l.X2, l.Double = colX(LeftColumn)-ext, colX(RightColumn)+2*rx+ext, true
			case v[LeftColumn]:
				l.X1, l.X2 = colX(LeftColumn)-ext, colX(LeftColumn)+2*rx+ext
			default:
				l.X1, l.X2 = colX(RightColumn)-ext, colX(RightColumn)+2*rx+ext
			}
			it.Ledgers = append(it.Ledgers, l)
		}
	}

	// stem and flag
	if d.Kind != score.Whole {
		sw := r.StrokeWidth
		var x float64
		switch {
		case staggered:
			x = hx + 2*rx + r.staggerGap()/2
		case it.StemUp:
			x = hx + 2*rx - sw/2
		default:
			x = hx + sw/2
		}
		s := Stem{X: x, Up: it.StemUp}
		if s.Up {
			s.Y1 = r.IndexY(lo)
			s.Y2 = min(r.IndexY(hi)-r.StemLength, r.IndexY(MiddleLine))
		} else {
			s.Y1 = r.IndexY(hi)
			s.Y2 = max(r.IndexY(lo)+r.StemLength, r.IndexY(MiddleLine))
		}
		it.Stem = &s
		if fg, ok := flagGlyph(d.Kind, s.Up); ok {
			it.Flag = &Mark{Glyph: fg, X: x - sw/2, Y: s.Y2, Size: r.GlyphSize}
		}
	}

	// augmentation dots sit in the space beside each head
	if d.Dotted {
		dx := headsRight + rx/2
		seen := make(map[int]bool)
		for _, n := range notes {
			space := n.Index
			if space&1 == 0 {
				space++
			}
			if seen[space] {
				continue
			}
			seen[space] = true
			it.Dots = append(it.Dots, Mark{Glyph: glyph.AugmentationDot, X: dx, Y: r.IndexY(space), Size: r.GlyphSize})
		}
	}

	// width
	it.Width = 2*rx + r.MinSpacingPerBeat*d.Beats(4)
	if accCol > 0 {
		it.Width += accCol
	}
	if ledgered {
		it.Width += rx
	}
	if d.Dotted {
		it.Width += 2 * rx
	}
	if staggered {
		it.Width += 2*rx + r.staggerGap()
	}

	if hi > TopLine {
		it.Top = float64(hi-TopLine)*step + step/2
	}
	if lo < BottomLine {
		it.Bottom = float64(BottomLine-lo)*step + step/2
	}
	return it, nil
}
