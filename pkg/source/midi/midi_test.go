package midi

import (
	"bytes"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

const tpq = 96 // ticks per quarter

type hit struct {
	keys       []uint8
	start, end uint32 // ticks
}

// track builds a track from note hits, which must be sorted by start and
// must not overlap.
func track(hits ...hit) smf.Track {
	var tr smf.Track
	var now uint32
	for _, h := range hits {
		for i, k := range h.keys {
			d := uint32(0)
			if i == 0 {
				d = h.start - now
			}
			tr.Add(d, midi.NoteOn(0, k, 100))
		}
		for i, k := range h.keys {
			d := uint32(0)
			if i == 0 {
				d = h.end - h.start
			}
			tr.Add(d, midi.NoteOff(0, k))
		}
		now = h.end
	}
	tr.Close(0)
	return tr
}

func encode(t *testing.T, tracks ...smf.Track) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(tpq)
	for _, tr := range tracks {
		if err := s.Add(tr); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func mustParse(t *testing.T, data []byte, opts Options) *score.Score {
	t.Helper()
	sc, err := Parse(data, opts)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sc
}

var (
	quarter = score.Duration{Kind: score.Quarter}
	half    = score.Duration{Kind: score.Half}
	whole   = score.Duration{Kind: score.Whole}
)

func pn(i int) score.PitchedNote { return score.PitchedNote{Index: i} }

func TestParseMelodyWithRest(t *testing.T) {
	data := encode(t, track(
		hit{keys: []uint8{64}, start: 0, end: tpq},
		hit{keys: []uint8{67}, start: 2 * tpq, end: 3 * tpq},
	))
	sc := mustParse(t, data, Options{Track: AutoTrack})

	want := [][]score.Event{{
		score.ClefChange(score.Treble),
		score.Note(quarter, pn(0)),
		score.Rest(quarter),
		score.Note(quarter, pn(2)),
	}}
	if !reflect.DeepEqual(sc.Measures, want) {
		t.Errorf("Measures = %v, want %v", sc.Measures, want)
	}
	if sc.Time != score.CommonTime {
		t.Errorf("Time = %v, want 4/4", sc.Time)
	}
}

func TestParseChord(t *testing.T) {
	data := encode(t, track(hit{keys: []uint8{67, 60, 64}, start: 0, end: 2 * tpq}))
	sc := mustParse(t, data, Options{Track: AutoTrack})

	events := sc.Events()
	if len(events) != 2 {
		t.Fatalf("events = %v, want clef and chord", events)
	}
	ch := events[1]
	if ch.Kind != score.EventChord || ch.Duration != half {
		t.Errorf("chord = %v, want a half-note chord", ch)
	}
	if want := []score.PitchedNote{pn(-2), pn(0), pn(2)}; !reflect.DeepEqual(ch.Notes, want) {
		t.Errorf("Notes = %v, want %v", ch.Notes, want)
	}
}

func TestParseBassClef(t *testing.T) {
	data := encode(t, track(
		hit{keys: []uint8{48}, start: 0, end: tpq},
		hit{keys: []uint8{43}, start: tpq, end: 2 * tpq},
	))
	sc := mustParse(t, data, Options{Track: AutoTrack})

	if sc.Clef != score.Bass {
		t.Fatalf("Clef = %v, want bass", sc.Clef)
	}
	events := sc.Events()
	// C3 and G2 on the bass staff
	if events[1].Notes[0].Index != 3 || events[2].Notes[0].Index != 0 {
		t.Errorf("events = %v, want indices 3 and 0", events)
	}

	treble := score.Treble
	sc = mustParse(t, data, Options{Track: AutoTrack, Clef: &treble})
	if sc.Clef != score.Treble {
		t.Errorf("Clef override = %v, want treble", sc.Clef)
	}
}

func TestParseSplitsAtBarline(t *testing.T) {
	data := encode(t, track(hit{keys: []uint8{72}, start: 0, end: 5 * tpq}))
	sc := mustParse(t, data, Options{Track: AutoTrack})

	want := [][]score.Event{
		{score.ClefChange(score.Treble), score.Note(whole, pn(5))},
		{score.Rest(quarter)},
	}
	if !reflect.DeepEqual(sc.Measures, want) {
		t.Errorf("Measures = %v, want %v", sc.Measures, want)
	}
}

func TestParseKeyOverride(t *testing.T) {
	data := encode(t, track(
		hit{keys: []uint8{70}, start: 0, end: tpq},
		hit{keys: []uint8{71}, start: tpq, end: 2 * tpq},
	))
	key := score.KeySignature{Count: 2, Sign: score.Flats}
	sc := mustParse(t, data, Options{Track: AutoTrack, Key: &key})

	events := sc.Events()
	if events[1].Kind != score.EventKey || events[1].Key != key {
		t.Fatalf("events[1] = %v, want key signature", events[1])
	}
	// Bb4 is in the key; B4 needs a natural
	if got := events[2].Notes[0]; got != (score.PitchedNote{Index: 4}) {
		t.Errorf("Bb4 = %v, want index 4 without accidental", got)
	}
	if got := events[3].Notes[0]; got != (score.PitchedNote{Index: 4, Accidental: score.Natural}) {
		t.Errorf("B4 = %v, want index 4 with natural", got)
	}

	bad := score.KeySignature{Count: 9}
	if _, err := Parse(data, Options{Track: AutoTrack, Key: &bad}); !errors.Is(err, errors.ErrCodeInvalidKeySignature) {
		t.Errorf("bad key err = %v, want INVALID_KEY_SIGNATURE", err)
	}
}

func TestParseGrid(t *testing.T) {
	// starts slightly late, snaps back onto the beat at eighth resolution
	data := encode(t, track(hit{keys: []uint8{64}, start: 10, end: tpq + 5}))
	sc := mustParse(t, data, Options{Track: AutoTrack, Grid: score.Eighth})

	events := sc.Events()
	if len(events) != 2 || events[1].Duration != quarter {
		t.Errorf("events = %v, want one quarter note", events)
	}
}

func TestPickTrack(t *testing.T) {
	empty := smf.Track{}
	empty.Close(0)
	data := encode(t, empty, track(hit{keys: []uint8{64}, start: 0, end: tpq}))

	if _, err := Parse(data, Options{Track: AutoTrack}); err != nil {
		t.Errorf("auto track: %v", err)
	}
	if _, err := Parse(data, Options{Track: 0}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty track err = %v, want INVALID_INPUT", err)
	}
	if _, err := Parse(data, Options{Track: 5}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing track err = %v, want NOT_FOUND", err)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse([]byte("not a midi file"), Options{}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestReadMeta(t *testing.T) {
	s := &smf.SMF{Tracks: []smf.Track{{
		{Delta: 0, Message: smf.Message{0xFF, 0x03, 0x05, 'h', 'e', 'l', 'l', 'o'}},
		{Delta: 0, Message: smf.Message{0xFF, 0x58, 0x04, 0x03, 0x02, 0x18, 0x08}},
		{Delta: 0, Message: smf.Message{0xFF, 0x59, 0x02, 0xFD, 0x00}},
		{Delta: 0, Message: smf.Message{0xFF, 0x58, 0x04, 0x06, 0x03, 0x18, 0x08}},
	}}}
	m := readMeta(s)

	if m.title != "hello" {
		t.Errorf("title = %q, want hello", m.title)
	}
	if m.time != (score.Time{Beats: 3, BeatUnit: 4}) {
		t.Errorf("time = %v, want 3/4", m.time)
	}
	if m.key != (score.KeySignature{Count: 3, Sign: score.Flats}) {
		t.Errorf("key = %v, want 3b", m.key)
	}
}

func TestMetaPayload(t *testing.T) {
	tests := []struct {
		name string
		msg  smf.Message
		typ  byte
		data []byte
		ok   bool
	}{
		{"tempo", smf.Message{0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}, 0x51, []byte{0x07, 0xA1, 0x20}, true},
		{"truncated", smf.Message{0xFF, 0x51, 0x03, 0x07}, 0, nil, false},
		{"channel message", smf.Message{0x90, 0x40, 0x64}, 0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, data, ok := metaPayload(tt.msg)
			if ok != tt.ok || typ != tt.typ || !bytes.Equal(data, tt.data) {
				t.Errorf("metaPayload() = %x %x %v, want %x %x %v", typ, data, ok, tt.typ, tt.data, tt.ok)
			}
		})
	}
}
