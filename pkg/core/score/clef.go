package score

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
)

// ClefKind selects how staff indices map to pitches.
type ClefKind int

const (
	Treble ClefKind = iota
	Bass
	Alto
)

var clefNames = [...]string{"treble", "bass", "alto"}

// Validate rejects unknown clefs.
func (c ClefKind) Validate() error {
	if c < Treble || c > Alto {
		return errors.New(errors.ErrCodeInvalidInput, "unknown clef %d", int(c))
	}
	return nil
}

// String returns the clef name.
func (c ClefKind) String() string {
	if c.Validate() != nil {
		return fmt.Sprintf("ClefKind(%d)", int(c))
	}
	return clefNames[c]
}

// AnchorIndex is the staff index the clef glyph's origin sits on: the G
// line for treble, the F line for bass and the middle line for alto.
func (c ClefKind) AnchorIndex() int {
	switch c {
	case Bass:
		return 6
	case Alto:
		return 4
	default:
		return 2
	}
}

// ParseClef parses a clef name. "g", "f" and "c" are accepted as aliases.
func ParseClef(s string) (ClefKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "treble", "g", "violin":
		return Treble, nil
	case "bass", "f":
		return Bass, nil
	case "alto", "c":
		return Alto, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown clef %q", s)
}

// KeySign says whether a key signature is written with sharps or flats.
type KeySign int

const (
	Sharps KeySign = iota
	Flats
)

// MaxKeyAccidentals is the largest number of accidentals in a key signature.
const MaxKeyAccidentals = 7

// KeySignature is a count of sharps or flats. The zero value is C major.
type KeySignature struct {
	Count int     `json:"count" bson:"count"`
	Sign  KeySign `json:"sign,omitempty" bson:"sign,omitempty"`
}

// Validate checks the count range.
func (k KeySignature) Validate() error {
	if k.Count < 0 || k.Count > MaxKeyAccidentals {
		return errors.New(errors.ErrCodeInvalidKeySignature, "key signature with %d accidentals", k.Count)
	}
	if k.Sign != Sharps && k.Sign != Flats {
		return errors.New(errors.ErrCodeInvalidKeySignature, "unknown key sign %d", int(k.Sign))
	}
	return nil
}

// Fifths returns the position on the circle of fifths: positive for sharp
// keys, negative for flat keys.
func (k KeySignature) Fifths() int {
	if k.Sign == Flats {
		return -k.Count
	}
	return k.Count
}

// String renders the signature as "2#" or "3b"; C major is "0".
func (k KeySignature) String() string {
	switch {
	case k.Count == 0:
		return "0"
	case k.Sign == Flats:
		return fmt.Sprintf("%db", k.Count)
	default:
		return fmt.Sprintf("%d#", k.Count)
	}
}

// ParseKeySignature parses "0", "2#" or "3b".
func ParseKeySignature(s string) (KeySignature, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KeySignature{}, errors.New(errors.ErrCodeInvalidKeySignature, "empty key signature")
	}
	sign := Sharps
	switch s[len(s)-1] {
	case '#':
		s = s[:len(s)-1]
	case 'b':
		sign = Flats
		s = s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return KeySignature{}, errors.Wrap(errors.ErrCodeInvalidKeySignature, err, "invalid key signature %q", s)
	}
	k := KeySignature{Count: n, Sign: sign}
	if n == 0 {
		k.Sign = Sharps
	}
	return k, k.Validate()
}

// KeyFromFifths builds a signature from a circle-of-fifths position.
func KeyFromFifths(fifths int) KeySignature {
	if fifths < 0 {
		return KeySignature{Count: -fifths, Sign: Flats}
	}
	return KeySignature{Count: fifths, Sign: Sharps}
}
