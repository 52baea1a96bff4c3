package score

import "strconv"

const eps = 1e-9

// Time is a time signature.
type Time struct {
	Beats    int `json:"beats" bson:"beats"`
	BeatUnit int `json:"beat_unit" bson:"beat_unit"`
}

// CommonTime is 4/4.
var CommonTime = Time{Beats: 4, BeatUnit: 4}

// Quarters returns the measure length in quarter notes. Invalid
// signatures fall back to common time.
func (t Time) Quarters() float64 {
	if t.Beats <= 0 || t.BeatUnit <= 0 {
		return 4
	}
	return float64(t.Beats) * 4 / float64(t.BeatUnit)
}

// String returns "beats/unit".
func (t Time) String() string {
	return strconv.Itoa(t.Beats) + "/" + strconv.Itoa(t.BeatUnit)
}

// SplitMeasures groups a flat event stream into measures of the given
// length. A measure is closed as soon as its accumulated length reaches
// the limit; an event that overshoots stays in the measure it started in.
// Clef and key-signature events take no time and open the next measure
// when they arrive at a boundary. A trailing partial measure is kept.
func SplitMeasures(events []Event, t Time) [][]Event {
	var (
		out     [][]Event
		current []Event
	)
	mc := NewMeasureCounter(t)
	for _, ev := range events {
		current = append(current, ev)
		if mc.Add(ev) {
			out = append(out, current)
			current = nil
		}
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// MeasureCounter tracks how much of the current measure is filled, for
// callers that split measures while reading events one at a time.
type MeasureCounter struct {
	limit, acc float64
}

// NewMeasureCounter returns a counter for measures of time t.
func NewMeasureCounter(t Time) *MeasureCounter {
	return &MeasureCounter{limit: t.Quarters()}
}

// SetTime changes the measure length. Time already counted is kept.
func (c *MeasureCounter) SetTime(t Time) { c.limit = t.Quarters() }

// Add counts ev and reports whether it completes the measure, in which
// case counting restarts at zero. Untimed events never complete one.
func (c *MeasureCounter) Add(ev Event) bool {
	if !ev.Timed() {
		return false
	}
	c.acc += ev.Duration.Quarters()
	if c.acc >= c.limit-eps {
		c.acc = 0
		return true
	}
	return false
}

// Reset starts a new measure.
func (c *MeasureCounter) Reset() { c.acc = 0 }

// Score is a whole piece: the settings in force at the start and its
// measures in order.
type Score struct {
	Title    string       `json:"title,omitempty" bson:"title,omitempty"`
	Time     Time         `json:"time" bson:"time"`
	Clef     ClefKind     `json:"clef" bson:"clef"`
	Key      KeySignature `json:"key" bson:"key"`
	Measures [][]Event    `json:"measures" bson:"measures"`
}

// Events returns all events in order, ignoring measure boundaries.
func (s *Score) Events() []Event {
	var out []Event
	for _, m := range s.Measures {
		out = append(out, m...)
	}
	return out
}

// Len returns the number of events.
func (s *Score) Len() int {
	n := 0
	for _, m := range s.Measures {
		n += len(m)
	}
	return n
}
