// Package pitch converts between spelled pitches, MIDI key numbers and
// staff indices.
//
// The layout engine only sees [score.PitchedNote] values: a staff index and
// the accidental that must actually be drawn. This package produces them.
// [Pitch.StaffIndex] maps a letter and octave onto the staff of a clef, and
// [Speller] decides which accidentals are implied by the key signature or by
// an earlier note in the same measure.
package pitch

import (
	"fmt"

	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

// Letter is a diatonic step name, C through B.
type Letter int

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
)

const letterNames = "CDEFGAB"

// semitone offset of each natural letter above C.
var letterSemitones = [...]int{0, 2, 4, 5, 7, 9, 11}

// String returns the uppercase letter.
func (l Letter) String() string {
	if l < C || l > B {
		return fmt.Sprintf("Letter(%d)", int(l))
	}
	return string(letterNames[l])
}

// ParseLetter accepts a single letter in either case.
func ParseLetter(r rune) (Letter, bool) {
	switch {
	case r >= 'a' && r <= 'g':
		r -= 'a' - 'A'
	case r < 'A' || r > 'G':
		return 0, false
	}
	for i := range letterNames {
		if rune(letterNames[i]) == r {
			return Letter(i), true
		}
	}
	return 0, false
}

// Pitch is a spelled pitch in scientific notation: C4 is middle C.
type Pitch struct {
	Letter     Letter
	Octave     int
	Accidental score.Accidental
}

// diatonic counts letter steps from C0.
func (p Pitch) diatonic() int {
	return p.Octave*7 + int(p.Letter)
}

// reference pitches sitting on the bottom staff line.
var clefReference = map[score.ClefKind]Pitch{
	score.Treble: {Letter: E, Octave: 4},
	score.Bass:   {Letter: G, Octave: 2},
	score.Alto:   {Letter: F, Octave: 3},
}

// StaffIndex returns the note's diatonic distance from the bottom line of
// a staff in clef c. Accidentals do not move a note on the staff.
func (p Pitch) StaffIndex(c score.ClefKind) int {
	ref, ok := clefReference[c]
	if !ok {
		ref = clefReference[score.Treble]
	}
	return p.diatonic() - ref.diatonic()
}

// MIDI returns the MIDI key number; C4 is 60.
func (p Pitch) MIDI() int {
	return 12*(p.Octave+1) + letterSemitones[p.Letter] + p.Accidental.Semitones()
}

// String renders the pitch as "F#4" or "Bbb2".
func (p Pitch) String() string {
	acc := ""
	switch p.Accidental {
	case score.Sharp:
		acc = "#"
	case score.Flat:
		acc = "b"
	case score.DoubleSharp:
		acc = "x"
	case score.DoubleFlat:
		acc = "bb"
	case score.Natural:
		acc = "n"
	}
	return fmt.Sprintf("%s%s%d", p.Letter, acc, p.Octave)
}

var (
	sharpSpelling = [12]Pitch{
		{Letter: C}, {Letter: C, Accidental: score.Sharp}, {Letter: D}, {Letter: D, Accidental: score.Sharp},
		{Letter: E}, {Letter: F}, {Letter: F, Accidental: score.Sharp}, {Letter: G},
		{Letter: G, Accidental: score.Sharp}, {Letter: A}, {Letter: A, Accidental: score.Sharp}, {Letter: B},
	}
	flatSpelling = [12]Pitch{
		{Letter: C}, {Letter: D, Accidental: score.Flat}, {Letter: D}, {Letter: E, Accidental: score.Flat},
		{Letter: E}, {Letter: F}, {Letter: G, Accidental: score.Flat}, {Letter: G},
		{Letter: A, Accidental: score.Flat}, {Letter: A}, {Letter: B, Accidental: score.Flat}, {Letter: B},
	}
)

// FromMIDI spells a MIDI key number. Flat keys spell black keys with
// flats; every other key uses sharps.
func FromMIDI(key int, ks score.KeySignature) (Pitch, error) {
	if key < 0 || key > 127 {
		return Pitch{}, errors.New(errors.ErrCodeInvalidInput, "midi key %d out of range", key)
	}
	table := &sharpSpelling
	if ks.Sign == score.Flats && ks.Count > 0 {
		table = &flatSpelling
	}
	p := table[key%12]
	p.Octave = key/12 - 1
	return p, nil
}

var (
	sharpOrder = [...]Letter{F, C, G, D, A, E, B}
	flatOrder  = [...]Letter{B, E, A, D, G, C, F}
)

// KeyOrder returns the letters altered by a key signature, in the order
// their accidentals are written.
func KeyOrder(ks score.KeySignature) []Letter {
	n := min(max(ks.Count, 0), score.MaxKeyAccidentals)
	if ks.Sign == score.Flats {
		return flatOrder[:n]
	}
	return sharpOrder[:n]
}

// KeyAlteration returns the semitone alteration a key signature implies
// for a letter.
func KeyAlteration(ks score.KeySignature, l Letter) int {
	for _, k := range KeyOrder(ks) {
		if k == l {
			if ks.Sign == score.Flats {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Speller turns spelled pitches into staff notes, dropping accidentals
// that are already in force. An accidental stays in force for the same
// staff position until [Speller.Reset] is called at the next barline.
type Speller struct {
	clef score.ClefKind
	key  score.KeySignature
	seen map[int]int
}

// NewSpeller returns a speller for the given clef and key.
func NewSpeller(c score.ClefKind, ks score.KeySignature) *Speller {
	return &Speller{clef: c, key: ks, seen: make(map[int]int)}
}

// SetClef changes the clef for subsequent notes.
func (s *Speller) SetClef(c score.ClefKind) { s.clef = c }

// SetKey changes the key signature and forgets measure accidentals.
func (s *Speller) SetKey(ks score.KeySignature) {
	s.key = ks
	s.Reset()
}

// Clef returns the current clef.
func (s *Speller) Clef() score.ClefKind { return s.clef }

// Key returns the current key signature.
func (s *Speller) Key() score.KeySignature { return s.key }

// Reset forgets accidentals introduced in the current measure.
func (s *Speller) Reset() {
	clear(s.seen)
}

// Spell returns the staff note for p. A pitch without an explicit
// accidental is read as the natural letter.
func (s *Speller) Spell(p Pitch) score.PitchedNote {
	d := p.diatonic()
	want := p.Accidental.Semitones()
	current, ok := s.seen[d]
	if !ok {
		current = KeyAlteration(s.key, p.Letter)
	}
	n := score.PitchedNote{Index: p.StaffIndex(s.clef)}
	if want != current {
		n.Accidental, _ = score.FromSemitones(want)
		s.seen[d] = want
	}
	return n
}

// Spell is a stateless convenience for a single note.
func Spell(p Pitch, ks score.KeySignature, c score.ClefKind) score.PitchedNote {
	return NewSpeller(c, ks).Spell(p)
}
