package staff

import (
	"fmt"

	"github.com/matzehuels/engrave/pkg/core/glyph"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

// ItemKind tags the payload of an [Item].
type ItemKind int

const (
	ItemRest ItemKind = iota
	ItemNotes
	ItemClef
	ItemKey
	ItemPlaceholder
)

var itemKindNames = [...]string{"rest", "notes", "clef", "key", "placeholder"}

// String returns the kind name.
func (k ItemKind) String() string {
	if k < ItemRest || k > ItemPlaceholder {
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
	return itemKindNames[k]
}

// MarshalText encodes the kind by name.
func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *ItemKind) UnmarshalText(b []byte) error {
	for i, n := range itemKindNames {
		if n == string(b) {
			*k = ItemKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown item kind %q", b)
}

// Column is the side of the stem a note head is drawn on.
type Column int

const (
	LeftColumn Column = iota
	RightColumn
)

// String returns "left" or "right".
func (c Column) String() string {
	if c == LeftColumn {
		return "left"
	}
	return "right"
}

// Head is a placed note head. X is the glyph origin relative to the item's
// left edge; Y is relative to the top staff line.
type Head struct {
	Index  int      `json:"index"`
	Column Column   `json:"column"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Glyph  glyph.ID `json:"glyph"`
	Size   float64  `json:"size"`
}

// Ledger is a short line at a staff index outside the staff. A Double
// ledger is shared by both head columns and spans them in one stroke.
type Ledger struct {
	Index  int     `json:"index"`
	X1     float64 `json:"x1"`
	X2     float64 `json:"x2"`
	Y      float64 `json:"y"`
	Double bool    `json:"double,omitempty"`
}

// Stem is the vertical line of a note group. Y1 is at the note heads, Y2 at
// the free end.
type Stem struct {
	X  float64 `json:"x"`
	Y1 float64 `json:"y1"`
	Y2 float64 `json:"y2"`
	Up bool    `json:"up"`
}

// Mark is any other placed glyph: accidentals, dots, flags, rests, clefs
// and key-signature symbols.
type Mark struct {
	Glyph glyph.ID `json:"glyph"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Size  float64  `json:"size"`
}

// Item is the laid-out form of one event. Coordinates are relative to the
// item's left edge and the staff's top line. Items are values and never
// change after construction.
type Item struct {
	Kind     ItemKind       `json:"kind"`
	Width    float64        `json:"width"`
	Top      float64        `json:"top"`
	Bottom   float64        `json:"bottom"`
	Duration score.Duration `json:"duration"`

	// InkTop and InkBottom are how far any primitive of the item reaches
	// above the top line and below the bottom line. Unlike Top and Bottom
	// they include stems, flags and accidentals.
	InkTop    float64 `json:"ink_top,omitempty"`
	InkBottom float64 `json:"ink_bottom,omitempty"`

	StemUp      bool     `json:"stem_up,omitempty"`
	Staggered   bool     `json:"staggered,omitempty"`
	Heads       []Head   `json:"heads,omitempty"`
	Ledgers     []Ledger `json:"ledgers,omitempty"`
	Stem        *Stem    `json:"stem,omitempty"`
	Flag        *Mark    `json:"flag,omitempty"`
	Accidentals []Mark   `json:"accidentals,omitempty"`
	Dots        []Mark   `json:"dots,omitempty"`

	Glyphs []Mark `json:"glyphs,omitempty"`
	Frame  []Line `json:"frame,omitempty"`
}

// ItemOption configures [NewItem].
type ItemOption func(*itemConfig)

type itemConfig struct {
	clef score.ClefKind
}

// InClef lays the event out on a staff with the given clef. It only
// affects key signatures; notes already carry staff indices.
func InClef(c score.ClefKind) ItemOption {
	return func(cfg *itemConfig) { cfg.clef = c }
}

// NewItem lays out one event. It fails with EMPTY_CHORD,
// UNREPRESENTABLE_DURATION or DEGENERATE_CONFIGURATION, or with
// INVALID_INPUT for staff indices beyond [MaxIndex] or for a chord that
// spells one staff index two ways. A nil gm uses the
// built-in Bravura metrics.
func NewItem(ev score.Event, r Renderer, gm glyph.Metrics, opts ...ItemOption) (Item, error) {
	if err := r.Validate(); err != nil {
		return Item{}, err
	}
	if err := ev.Validate(); err != nil {
		return Item{}, err
	}
	if gm == nil {
		gm = glyph.Bravura()
	}
	cfg := itemConfig{clef: score.Treble}
	for _, o := range opts {
		o(&cfg)
	}

	var (
		it  Item
		err error
	)
	switch ev.Kind {
	case score.EventRest:
		it, err = layoutRest(ev.Duration, r, gm)
	case score.EventNote, score.EventChord:
		it, err = layoutNotes(ev.Duration, ev.Notes, r, gm)
	case score.EventClef:
		it, err = layoutClef(ev.Clef, r, gm)
	case score.EventKey:
		it, err = layoutKey(ev.Key, cfg.clef, r, gm)
	default:
		return Item{}, errors.New(errors.ErrCodeInvalidInput, "unknown event kind %d", int(ev.Kind))
	}
	if err != nil {
		return Item{}, err
	}
	it.InkTop, it.InkBottom = inkExtent(it, r, gm)
	return it, nil
}

// inkExtent measures the drawn item against the staff lines. It is never
// less than the item's Top and Bottom.
func inkExtent(it Item, r Renderer, gm glyph.Metrics) (top, bottom float64) {
	var c Collector
	it.Draw(0, 0, r, &c)
	if len(c.Primitives) == 0 {
		return it.Top, it.Bottom
	}
	_, minY, _, maxY := c.Bounds(gm)
	return max(it.Top, -minY), max(it.Bottom, maxY-r.StaffHeight())
}

// verticalExtent returns how far a glyph placed at y reaches above the top
// line and below the bottom line.
func verticalExtent(r Renderer, y float64, b glyph.BoundingBox) (top, bottom float64) {
	return max(0, -(y + b.Y)), max(0, y+b.Bottom()-r.StaffHeight())
}

// ============================================================================
// Rests
// ============================================================================

var restGlyphs = map[score.DurationKind]glyph.ID{
	score.Sixteenth: glyph.Rest16th,
	score.Eighth:    glyph.Rest8th,
	score.Quarter:   glyph.RestQuarter,
	score.Half:      glyph.RestHalf,
	score.Whole:     glyph.RestWhole,
}

func layoutRest(d score.Duration, r Renderer, gm glyph.Metrics) (Item, error) {
	g, ok := restGlyphs[d.Kind]
	if !ok {
		return Item{}, errors.New(errors.ErrCodeUnrepresentableDuration, "no rest glyph for %s", d.Kind)
	}
	quarter, err := gm.Bounds(glyph.RestQuarter, r.GlyphSize)
	if err != nil {
		return Item{}, err
	}
	b, err := gm.Bounds(g, r.GlyphSize)
	if err != nil {
		return Item{}, err
	}

	base := quarter.Width
	// whole rests hang from the fourth line, half rests sit on the middle line
	y := r.IndexY(MiddleLine)
	if d.Kind == score.Whole {
		y = r.IndexY(MiddleLine + 2)
	}
	it := Item{
		Kind:     ItemRest,
		Duration: d,
		Width:    base + r.MinSpacingPerBeat*d.Beats(4),
		Glyphs:   []Mark{{Glyph: g, X: (base-b.Width)/2 - b.X, Y: y, Size: r.GlyphSize}},
	}
	it.Top, it.Bottom = verticalExtent(r, y, b)
	if d.Dotted {
		it.Width += 2 * r.NoteRadiusX
		it.Dots = []Mark{{Glyph: glyph.AugmentationDot, X: base + r.NoteRadiusX/2, Y: r.IndexY(MiddleLine + 1), Size: r.GlyphSize}}
	}
	return it, nil
}

// ============================================================================
// Clefs and key signatures
// ============================================================================

var clefGlyphs = map[score.ClefKind]glyph.ID{
	score.Treble: glyph.GClef,
	score.Bass:   glyph.FClef,
	score.Alto:   glyph.CClef,
}

func layoutClef(c score.ClefKind, r Renderer, gm glyph.Metrics) (Item, error) {
	g := clefGlyphs[c]
	b, err := gm.Bounds(g, r.GlyphSize)
	if err != nil {
		return Item{}, err
	}
	y := r.IndexY(c.AnchorIndex())
	it := Item{
		Kind:   ItemClef,
		Width:  b.Width + r.Padding,
		Glyphs: []Mark{{Glyph: g, X: r.Padding/2 - b.X, Y: y, Size: r.GlyphSize}},
	}
	it.Top, it.Bottom = verticalExtent(r, y, b)
	return it, nil
}

// Key-signature staff indices in treble clef, in writing order.
var (
	sharpPositions = [score.MaxKeyAccidentals]int{8, 5, 9, 6, 3, 7, 4}
	flatPositions  = [score.MaxKeyAccidentals]int{4, 7, 3, 6, 2, 5, 1}
)

// keyShift moves treble key-signature positions onto other clefs.
func keyShift(c score.ClefKind) int {
	switch c {
	case score.Bass:
		return -2
	case score.Alto:
		return -1
	}
	return 0
}

// KeyPositions returns the staff indices of a key signature's symbols.
func KeyPositions(k score.KeySignature, c score.ClefKind) []int {
	table := sharpPositions
	if k.Sign == score.Flats {
		table = flatPositions
	}
	n := min(max(k.Count, 0), score.MaxKeyAccidentals)
	out := make([]int, n)
	for i := range out {
		out[i] = table[i] + keyShift(c)
	}
	return out
}

func layoutKey(k score.KeySignature, c score.ClefKind, r Renderer, gm glyph.Metrics) (Item, error) {
	it := Item{Kind: ItemKey}
	if k.Count == 0 {
		return it, nil
	}
	acc := score.Sharp
	if k.Sign == score.Flats {
		acc = score.Flat
	}
	g := accidentalGlyphs[acc]
	b, err := gm.Bounds(g, r.AccidentalGlyphSize)
	if err != nil {
		return Item{}, err
	}
	advance := b.Width + r.StrokeWidth
	for i, pos := range KeyPositions(k, c) {
		y := accidentalY(acc, r.IndexY(pos), b)
		it.Glyphs = append(it.Glyphs, Mark{
			Glyph: g,
			X:     r.Padding/2 + float64(i)*advance - b.X,
			Y:     y,
			Size:  r.AccidentalGlyphSize,
		})
		top, bottom := verticalExtent(r, y, b)
		it.Top, it.Bottom = max(it.Top, top), max(it.Bottom, bottom)
	}
	it.Width = float64(k.Count)*advance + r.Padding
	return it, nil
}

// ============================================================================
// Placeholder
// ============================================================================

// Placeholder returns an item that marks an event which could not be laid
// out: a crossed box spanning the middle of the staff.
func Placeholder(r Renderer) Item {
	rx := r.NoteRadiusX
	w := 4 * rx
	x1, x2 := rx/2, w-rx/2
	y1, y2 := r.IndexY(MiddleLine+2), r.IndexY(MiddleLine-2)
	sw := r.StrokeWidth
	return Item{
		Kind:  ItemPlaceholder,
		Width: w,
		Frame: []Line{
			{X1: x1, Y1: y1, X2: x2, Y2: y1, StrokeWidth: sw},
			{X1: x2, Y1: y1, X2: x2, Y2: y2, StrokeWidth: sw},
			{X1: x2, Y1: y2, X2: x1, Y2: y2, StrokeWidth: sw},
			{X1: x1, Y1: y2, X2: x1, Y2: y1, StrokeWidth: sw},
			{X1: x1, Y1: y1, X2: x2, Y2: y2, StrokeWidth: sw},
			{X1: x1, Y1: y2, X2: x2, Y2: y1, StrokeWidth: sw},
		},
	}
}

// ============================================================================
// Drawing
// ============================================================================

// Draw emits the item's primitives with its left edge at x and the staff's
// top line at y. All primitives of one item are emitted together.
func (it Item) Draw(x, y float64, r Renderer, sink Sink) {
	for _, l := range it.Ledgers {
		sink.Emit(Line{X1: x + l.X1, Y1: y + l.Y, X2: x + l.X2, Y2: y + l.Y, StrokeWidth: r.StrokeWidth})
	}
	for _, h := range it.Heads {
		sink.Emit(GlyphPath{X: x + h.X, Y: y + h.Y, Glyph: h.Glyph, Size: h.Size})
	}
	if s := it.Stem; s != nil {
		sink.Emit(Line{X1: x + s.X, Y1: y + s.Y1, X2: x + s.X, Y2: y + s.Y2, StrokeWidth: r.StrokeWidth})
	}
	emit := func(m Mark) {
		sink.Emit(GlyphPath{X: x + m.X, Y: y + m.Y, Glyph: m.Glyph, Size: m.Size})
	}
	if it.Flag != nil {
		emit(*it.Flag)
	}
	for _, m := range it.Accidentals {
		emit(m)
	}
	for _, m := range it.Glyphs {
		emit(m)
	}
	for _, m := range it.Dots {
		emit(m)
	}
	for _, l := range it.Frame {
		sink.Emit(Line{X1: x + l.X1, Y1: y + l.Y1, X2: x + l.X2, Y2: y + l.Y2, StrokeWidth: l.StrokeWidth})
	}
}
