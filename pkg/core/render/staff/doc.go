// Package staff lays out music on a five-line staff and emits drawing
// primitives.
//
// # Overview
//
// Layout is built bottom-up and never mutated afterwards:
//
//  1. [NewItem]: one [score.Event] becomes an [Item] with a width, a
//     vertical extent and its placed heads, stems, ledger lines and glyphs
//  2. [NewMeasure]: items between two barlines become a [Measure]
//  3. [Staff.Push]: measures are packed next-fit into [Row]s no wider than
//     the staff
//  4. [Staff.Draw]: rows are justified and streamed to a [Sink] as
//     [Line] and [GlyphPath] primitives
//
// [Build] runs steps 1 to 3 for a whole document and reports events that
// could not be laid out without giving up on their neighbours.
//
// # Coordinates
//
// Staff index 0 is the bottom line; lines sit on even indices up to 8.
// Y grows downward and one index is [Renderer.Step] (the vertical note
// radius). Item coordinates are relative to the item's left edge and the
// top staff line.
//
// # Chords
//
// Chord notes are sorted before layout, so any permutation of the same
// notes produces the same item. Notes one step apart are staggered on both
// sides of the stem: odd indices go left, even indices right. Other notes
// sit opposite the stem. Ledger lines are computed per side and merged
// into a single double-width line when both sides need one.
//
// # Glyph metrics
//
// Every width that depends on a symbol's shape comes from an injected
// [glyph.Metrics]. Nothing in this package reads font files.
package staff
