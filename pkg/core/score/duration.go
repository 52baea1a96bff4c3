package score

import (
	"fmt"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
)

// DurationKind is a rhythmic value. Kinds are ordered shortest first so that
// [Duration.Beats] decreases strictly with the ordinal.
type DurationKind int

const (
	Sixteenth DurationKind = iota
	Eighth
	Quarter
	Half
	Whole
)

var durationNames = [...]string{"sixteenth", "eighth", "quarter", "half", "whole"}

// quarterLengths is the length of each kind measured in quarter notes.
var quarterLengths = [...]float64{0.25, 0.5, 1, 2, 4}

// Valid reports whether k names a known kind.
func (k DurationKind) Valid() bool {
	return k >= Sixteenth && k <= Whole
}

// String returns the lowercase name of the kind.
func (k DurationKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("DurationKind(%d)", int(k))
	}
	return durationNames[k]
}

// Denominator returns the conventional note-value number: 1 for whole,
// 4 for quarter, 16 for sixteenth.
func (k DurationKind) Denominator() int {
	if !k.Valid() {
		return 0
	}
	return 1 << (Whole - k)
}

// MarshalText encodes the kind by name.
func (k DurationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, errors.New(errors.ErrCodeUnrepresentableDuration, "duration kind %d", int(k))
	}
	return []byte(durationNames[k]), nil
}

// UnmarshalText decodes a kind name.
func (k *DurationKind) UnmarshalText(b []byte) error {
	kind, err := ParseDurationKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseDurationKind parses a kind name ("quarter") or note-value number ("4").
func ParseDurationKind(s string) (DurationKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range durationNames {
		if s == name {
			return DurationKind(i), nil
		}
	}
	switch s {
	case "1":
		return Whole, nil
	case "2":
		return Half, nil
	case "4":
		return Quarter, nil
	case "8":
		return Eighth, nil
	case "16":
		return Sixteenth, nil
	}
	return 0, errors.New(errors.ErrCodeUnrepresentableDuration, "unknown duration %q", s)
}

// Duration is a rhythmic kind plus an optional augmentation dot.
type Duration struct {
	Kind   DurationKind `json:"kind" bson:"kind"`
	Dotted bool         `json:"dotted,omitempty" bson:"dotted,omitempty"`
}

// Validate reports an UNREPRESENTABLE_DURATION error for unknown kinds.
func (d Duration) Validate() error {
	if !d.Kind.Valid() {
		return errors.New(errors.ErrCodeUnrepresentableDuration, "no glyph for duration kind %d", int(d.Kind))
	}
	return nil
}

// Beats returns how many notes of this duration fit into unit quarter
// notes. Beats(4) is 16 for a sixteenth and 1 for a whole note; the value
// is scaled by 1.5 when dotted. Unknown kinds yield 0 rather than an
// infinite or negative value.
func (d Duration) Beats(unit float64) float64 {
	if !d.Kind.Valid() || unit <= 0 {
		return 0
	}
	b := unit / quarterLengths[d.Kind]
	if d.Dotted {
		b *= 1.5
	}
	return b
}

// Quarters returns the sounding length measured in quarter notes.
func (d Duration) Quarters() float64 {
	if !d.Kind.Valid() {
		return 0
	}
	q := quarterLengths[d.Kind]
	if d.Dotted {
		q *= 1.5
	}
	return q
}

// String renders the duration in note-value form, e.g. "4." for a dotted
// quarter.
func (d Duration) String() string {
	s := fmt.Sprintf("%d", d.Kind.Denominator())
	if d.Dotted {
		s += "."
	}
	return s
}
