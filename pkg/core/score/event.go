package score

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/engrave/pkg/errors"
)

// Accidental is an optional pitch modifier drawn in front of a note head.
type Accidental int

const (
	NoAccidental Accidental = iota
	Natural
	Sharp
	Flat
	DoubleSharp
	DoubleFlat
)

var accidentalNames = [...]string{"none", "natural", "sharp", "flat", "double-sharp", "double-flat"}

// String returns the accidental's name.
func (a Accidental) String() string {
	if a < NoAccidental || a > DoubleFlat {
		return fmt.Sprintf("Accidental(%d)", int(a))
	}
	return accidentalNames[a]
}

// Semitones returns the chromatic alteration: +1 for a sharp, -2 for a
// double flat, 0 for natural or none.
func (a Accidental) Semitones() int {
	switch a {
	case Sharp:
		return 1
	case Flat:
		return -1
	case DoubleSharp:
		return 2
	case DoubleFlat:
		return -2
	default:
		return 0
	}
}

// FromSemitones returns the accidental spelling an alteration in [-2, 2].
// An alteration of 0 yields Natural so that the result is always drawn.
func FromSemitones(n int) (Accidental, bool) {
	switch n {
	case -2:
		return DoubleFlat, true
	case -1:
		return Flat, true
	case 0:
		return Natural, true
	case 1:
		return Sharp, true
	case 2:
		return DoubleSharp, true
	}
	return NoAccidental, false
}

// PitchedNote is a note positioned on the staff.
type PitchedNote struct {
	Index      int        `json:"index" bson:"index"`
	Accidental Accidental `json:"accidental,omitempty" bson:"accidental,omitempty"`
}

// String renders the note as "index" or "index+accidental".
func (n PitchedNote) String() string {
	if n.Accidental == NoAccidental {
		return fmt.Sprintf("%d", n.Index)
	}
	return fmt.Sprintf("%d%s", n.Index, n.Accidental)
}

// EventKind tags the variant stored in an [Event].
type EventKind int

const (
	EventRest EventKind = iota
	EventNote
	EventChord
	EventClef
	EventKey
)

var eventKindNames = [...]string{"rest", "note", "chord", "clef", "key"}

// String returns the variant name.
func (k EventKind) String() string {
	if k < EventRest || k > EventKey {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

// Event is one musical event. Only the fields relevant to Kind are set;
// use the constructors rather than composite literals.
type Event struct {
	Kind     EventKind     `json:"kind" bson:"kind"`
	Duration Duration      `json:"duration" bson:"duration"`
	Notes    []PitchedNote `json:"notes,omitempty" bson:"notes,omitempty"`
	Clef     ClefKind      `json:"clef,omitempty" bson:"clef,omitempty"`
	Key      KeySignature  `json:"key,omitempty" bson:"key,omitempty"`
}

// Rest returns a rest event.
func Rest(d Duration) Event {
	return Event{Kind: EventRest, Duration: d}
}

// Note returns a single-note event.
func Note(d Duration, n PitchedNote) Event {
	return Event{Kind: EventNote, Duration: d, Notes: []PitchedNote{n}}
}

// Chord returns a chord event. The notes are copied; their order carries
// no meaning. A chord without notes fails [Event.Validate].
func Chord(d Duration, notes ...PitchedNote) Event {
	return Event{Kind: EventChord, Duration: d, Notes: slices.Clone(notes)}
}

// ClefChange returns a clef event.
func ClefChange(c ClefKind) Event {
	return Event{Kind: EventClef, Clef: c}
}

// Key returns a key-signature event.
func Key(k KeySignature) Event {
	return Event{Kind: EventKey, Key: k}
}

// Timed reports whether the event occupies time.
func (e Event) Timed() bool {
	return e.Kind == EventRest || e.Kind == EventNote || e.Kind == EventChord
}

// Validate checks the variant invariants.
func (e Event) Validate() error {
	switch e.Kind {
	case EventRest:
		return e.Duration.Validate()
	case EventNote:
		if len(e.Notes) != 1 {
			return errors.New(errors.ErrCodeInvalidInput, "note event carries %d notes", len(e.Notes))
		}
		return e.Duration.Validate()
	case EventChord:
		if len(e.Notes) == 0 {
			return errors.New(errors.ErrCodeEmptyChord, "chord has no notes")
		}
		return e.Duration.Validate()
	case EventClef:
		return e.Clef.Validate()
	case EventKey:
		return e.Key.Validate()
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown event kind %d", int(e.Kind))
	}
}

// String renders a compact debugging form such as "chord(4 [-2 -1])".
func (e Event) String() string {
	switch e.Kind {
	case EventRest:
		return fmt.Sprintf("rest(%s)", e.Duration)
	case EventNote, EventChord:
		parts := make([]string, len(e.Notes))
		for i, n := range e.Notes {
			parts[i] = n.String()
		}
		return fmt.Sprintf("%s(%s [%s])", e.Kind, e.Duration, strings.Join(parts, " "))
	case EventClef:
		return fmt.Sprintf("clef(%s)", e.Clef)
	case EventKey:
		return fmt.Sprintf("key(%s)", e.Key)
	}
	return e.Kind.String()
}
