package score

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/matzehuels/engrave/pkg/errors"
)

func TestBeats(t *testing.T) {
	tests := []struct {
		name string
		d    Duration
		want float64
	}{
		{"sixteenth", Duration{Kind: Sixteenth}, 16},
		{"eighth", Duration{Kind: Eighth}, 8},
		{"quarter", Duration{Kind: Quarter}, 4},
		{"half", Duration{Kind: Half}, 2},
		{"whole", Duration{Kind: Whole}, 1},
		{"dotted quarter", Duration{Kind: Quarter, Dotted: true}, 6},
		{"unknown kind", Duration{Kind: DurationKind(42)}, 0},
		{"negative kind", Duration{Kind: DurationKind(-1)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Beats(4); got != tt.want {
				t.Errorf("Beats(4) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeatsStrictlyDecreasing(t *testing.T) {
	for _, dotted := range []bool{false, true} {
		prev := math.Inf(1)
		for k := Sixteenth; k <= Whole; k++ {
			b := Duration{Kind: k, Dotted: dotted}.Beats(4)
			if !(b < prev) {
				t.Errorf("Beats(%v, dotted=%v) = %v, not below %v", k, dotted, b, prev)
			}
			if b <= 0 || math.IsInf(b, 0) || math.IsNaN(b) {
				t.Errorf("Beats(%v) = %v, want finite positive", k, b)
			}
			prev = b
		}
	}
}

func TestQuarters(t *testing.T) {
	if got := (Duration{Kind: Half, Dotted: true}).Quarters(); got != 3 {
		t.Errorf("Quarters() = %v, want 3", got)
	}
	if got := (Duration{Kind: Sixteenth}).Quarters(); got != 0.25 {
		t.Errorf("Quarters() = %v, want 0.25", got)
	}
}

func TestParseDurationKind(t *testing.T) {
	tests := []struct {
		in      string
		want    DurationKind
		wantErr bool
	}{
		{"quarter", Quarter, false},
		{"Whole", Whole, false},
		{"16", Sixteenth, false},
		{"2", Half, false},
		{"32", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDurationKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDurationKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeUnrepresentableDuration) {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeUnrepresentableDuration)
			}
			if got != tt.want {
				t.Errorf("ParseDurationKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDurationJSON(t *testing.T) {
	data, err := json.Marshal(Duration{Kind: Eighth, Dotted: true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"kind":"eighth","dotted":true}` {
		t.Errorf("Marshal = %s", data)
	}

	var d Duration
	if err := json.Unmarshal([]byte(`{"kind":"half"}`), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.Kind != Half || d.Dotted {
		t.Errorf("Unmarshal = %+v, want half", d)
	}

	if _, err := json.Marshal(Duration{Kind: 9}); err == nil {
		t.Error("Marshal(unknown kind) error = nil, want error")
	}
}

func TestEventValidate(t *testing.T) {
	q := Duration{Kind: Quarter}
	tests := []struct {
		name string
		ev   Event
		code errors.Code
	}{
		{"rest", Rest(q), ""},
		{"note", Note(q, PitchedNote{Index: 3}), ""},
		{"chord", Chord(q, PitchedNote{Index: -2}, PitchedNote{Index: -1}), ""},
		{"empty chord", Chord(q), errors.ErrCodeEmptyChord},
		{"bad duration", Note(Duration{Kind: 12}, PitchedNote{}), errors.ErrCodeUnrepresentableDuration},
		{"bad rest", Rest(Duration{Kind: -3}), errors.ErrCodeUnrepresentableDuration},
		{"clef", ClefChange(Bass), ""},
		{"bad clef", ClefChange(ClefKind(7)), errors.ErrCodeInvalidInput},
		{"key", Key(KeySignature{Count: 3, Sign: Flats}), ""},
		{"bad key", Key(KeySignature{Count: 8}), errors.ErrCodeInvalidKeySignature},
		{"note without pitch", Event{Kind: EventNote, Duration: q}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("Validate() code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestChordCopiesNotes(t *testing.T) {
	notes := []PitchedNote{{Index: 1}, {Index: 3}}
	ev := Chord(Duration{Kind: Half}, notes...)
	notes[0].Index = 99
	if ev.Notes[0].Index != 1 {
		t.Errorf("Notes[0].Index = %d, want 1", ev.Notes[0].Index)
	}
}

func TestParseKeySignature(t *testing.T) {
	tests := []struct {
		in      string
		want    KeySignature
		wantErr bool
	}{
		{"0", KeySignature{}, false},
		{"2#", KeySignature{Count: 2, Sign: Sharps}, false},
		{"3b", KeySignature{Count: 3, Sign: Flats}, false},
		{"7b", KeySignature{Count: 7, Sign: Flats}, false},
		{"8#", KeySignature{Count: 8, Sign: Sharps}, true},
		{"x", KeySignature{}, true},
		{"", KeySignature{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeySignature(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKeySignature(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseKeySignature(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestKeyFromFifths(t *testing.T) {
	for f := -7; f <= 7; f++ {
		if got := KeyFromFifths(f).Fifths(); got != f {
			t.Errorf("KeyFromFifths(%d).Fifths() = %d", f, got)
		}
	}
}

func TestParseClef(t *testing.T) {
	tests := []struct {
		in   string
		want ClefKind
		ok   bool
	}{
		{"treble", Treble, true},
		{"G", Treble, true},
		{"bass", Bass, true},
		{"c", Alto, true},
		{"tenor", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseClef(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseClef(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestSplitMeasures(t *testing.T) {
	q := Duration{Kind: Quarter}
	h := Duration{Kind: Half}
	n := PitchedNote{Index: 4}

	events := []Event{
		ClefChange(Treble),
		Note(q, n), Note(q, n), Note(h, n),
		Note(Duration{Kind: Half, Dotted: true}, n), Note(q, n),
		Rest(Duration{Kind: Whole}),
		Note(q, n),
	}

	got := SplitMeasures(events, CommonTime)
	wantLens := []int{4, 2, 1, 1}
	if len(got) != len(wantLens) {
		t.Fatalf("len = %d, want %d", len(got), len(wantLens))
	}
	for i, m := range got {
		if len(m) != wantLens[i] {
			t.Errorf("measure %d has %d events, want %d", i, len(m), wantLens[i])
		}
	}
	if got[0][0].Kind != EventClef {
		t.Errorf("first event kind = %v, want clef", got[0][0].Kind)
	}
}

func TestSplitMeasuresThreeFour(t *testing.T) {
	q := Note(Duration{Kind: Quarter}, PitchedNote{})
	got := SplitMeasures([]Event{q, q, q, q, q, q}, Time{Beats: 3, BeatUnit: 4})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if (Time{}).Quarters() != 4 {
		t.Errorf("zero Time.Quarters() = %v, want 4", (Time{}).Quarters())
	}
}

func TestMeasureCounter(t *testing.T) {
	q := Note(Duration{Kind: Quarter}, PitchedNote{})
	h := Note(Duration{Kind: Half}, PitchedNote{})
	mc := NewMeasureCounter(Time{Beats: 2, BeatUnit: 4})

	steps := []struct {
		ev   Event
		want bool
	}{
		{q, false},
		{ClefChange(Bass), false},
		{q, true},
		{h, true},
		{q, false},
	}
	for i, s := range steps {
		if got := mc.Add(s.ev); got != s.want {
			t.Errorf("step %d: Add(%v) = %v, want %v", i, s.ev, got, s.want)
		}
	}

	mc.Reset()
	mc.SetTime(Time{Beats: 3, BeatUnit: 4})
	if mc.Add(h) || !mc.Add(q) {
		t.Error("3/4 measure should close after half plus quarter")
	}
}
