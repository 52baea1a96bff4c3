package pitch

import (
	"math/bits"
	"strings"
)

// IntervalSet is a set of pitch classes (0 = C or chord root, 11 = B or
// major seventh) stored as a 12-bit mask.
type IntervalSet uint16

const fullSet IntervalSet = 1<<12 - 1

// Set builds a set from pitch classes; values are reduced modulo 12.
func Set(classes ...int) IntervalSet {
	var s IntervalSet
	for _, c := range classes {
		s = s.Add(c)
	}
	return s
}

func mod12(n int) int {
	return ((n % 12) + 12) % 12
}

// Add returns s with class c added.
func (s IntervalSet) Add(c int) IntervalSet { return s | 1<<mod12(c) }

// Contains reports whether class c is in s.
func (s IntervalSet) Contains(c int) bool { return s&(1<<mod12(c)) != 0 }

// Union returns s ∪ o.
func (s IntervalSet) Union(o IntervalSet) IntervalSet { return (s | o) & fullSet }

// Intersect returns s ∩ o.
func (s IntervalSet) Intersect(o IntervalSet) IntervalSet { return s & o & fullSet }

// Difference returns s \ o.
func (s IntervalSet) Difference(o IntervalSet) IntervalSet { return s &^ o & fullSet }

// Len returns the number of classes in s.
func (s IntervalSet) Len() int { return bits.OnesCount16(uint16(s & fullSet)) }

// Rotate transposes every class by n semitones, wrapping at the octave.
func (s IntervalSet) Rotate(n int) IntervalSet {
	n = mod12(n)
	s &= fullSet
	return (s<<n | s>>(12-n)) & fullSet
}

// Intervals lists the classes in ascending order.
func (s IntervalSet) Intervals() []int {
	var out []int
	for c := 0; c < 12; c++ {
		if s.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// ChordKind names a chord quality.
type ChordKind int

const (
	UnknownChord ChordKind = iota
	Major
	Minor
	Diminished
	Augmented
	Sus2
	Sus4
	Dominant7
	Major7
	Minor7
	HalfDiminished7
	Diminished7
)

var chordTable = []struct {
	kind   ChordKind
	set    IntervalSet
	suffix string
}{
	{Major, Set(0, 4, 7), ""},
	{Minor, Set(0, 3, 7), "m"},
	{Diminished, Set(0, 3, 6), "dim"},
	{Augmented, Set(0, 4, 8), "aug"},
	{Sus2, Set(0, 2, 7), "sus2"},
	{Sus4, Set(0, 5, 7), "sus4"},
	{Dominant7, Set(0, 4, 7, 10), "7"},
	{Major7, Set(0, 4, 7, 11), "maj7"},
	{Minor7, Set(0, 3, 7, 10), "m7"},
	{HalfDiminished7, Set(0, 3, 6, 10), "m7b5"},
	{Diminished7, Set(0, 3, 6, 9), "dim7"},
}

// Suffix returns the chord-symbol suffix, e.g. "m7".
func (k ChordKind) Suffix() string {
	for _, c := range chordTable {
		if c.kind == k {
			return c.suffix
		}
	}
	return "?"
}

// DetectChord finds a root such that the set, transposed down to that
// root, matches a known chord quality. Each member of the set is tried as
// root in ascending order, so symmetric chords report their lowest class.
func DetectChord(s IntervalSet) (root int, kind ChordKind, ok bool) {
	for _, r := range s.Intervals() {
		mode := s.Rotate(-r)
		for _, c := range chordTable {
			if mode == c.set {
				return r, c.kind, true
			}
		}
	}
	return 0, UnknownChord, false
}

var rootNames = [12]string{"C", "C#", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B"}

// ChordName returns a chord symbol for MIDI keys such as "Am7", or the
// empty string when the quality is unknown.
func ChordName(keys ...int) string {
	var s IntervalSet
	for _, k := range keys {
		s = s.Add(k)
	}
	root, kind, ok := DetectChord(s)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(rootNames[root])
	b.WriteString(kind.Suffix())
	return b.String()
}
