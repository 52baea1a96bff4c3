package text

import (
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

var (
	quarter = score.Duration{Kind: score.Quarter}
	whole   = score.Duration{Kind: score.Whole}
)

func note(i int, a score.Accidental) score.PitchedNote {
	return score.PitchedNote{Index: i, Accidental: a}
}

func mustParse(t *testing.T, src string) *score.Score {
	t.Helper()
	doc, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return doc
}

func TestParseBarlines(t *testing.T) {
	doc := mustParse(t, "e'4 f' g' a' | b'1")

	want := [][]score.Event{
		{
			score.Note(quarter, note(0, score.NoAccidental)),
			score.Note(quarter, note(1, score.NoAccidental)),
			score.Note(quarter, note(2, score.NoAccidental)),
			score.Note(quarter, note(3, score.NoAccidental)),
		},
		{score.Note(whole, note(4, score.NoAccidental))},
	}
	if !reflect.DeepEqual(doc.Measures, want) {
		t.Errorf("Measures = %v, want %v", doc.Measures, want)
	}
}

func TestParseAutoMeasures(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		sizes []int
	}{
		{"common time", "c'4 d' e' f' g' a'", []int{4, 2}},
		{"three four", "\\time 3/4 c'4 d' e' f' g' a'", []int{3, 3}},
		{"half notes", "c'2 d' e'", []int{2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.src)
			var sizes []int
			for _, m := range doc.Measures {
				sizes = append(sizes, len(m))
			}
			if !reflect.DeepEqual(sizes, tt.sizes) {
				t.Errorf("measure sizes = %v, want %v", sizes, tt.sizes)
			}
		})
	}
}

func TestParsePitches(t *testing.T) {
	tests := []struct {
		src  string
		want score.PitchedNote
	}{
		{"e'", note(0, score.NoAccidental)},
		{"c'", note(-2, score.NoAccidental)},
		{"c''", note(5, score.NoAccidental)},
		{"c", note(-9, score.NoAccidental)},
		{"a,", note(-11, score.NoAccidental)},
		{"fis'", note(1, score.Sharp)},
		{"bes'", note(4, score.Flat)},
		{"es'", note(0, score.Flat)},
		{"as'", note(3, score.Flat)},
		{"cisis'", note(-2, score.DoubleSharp)},
		{"deses'", note(-1, score.DoubleFlat)},
		{"c'!", note(-2, score.Natural)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			doc := mustParse(t, tt.src)
			got := doc.Measures[0][0].Notes[0]
			if got != tt.want {
				t.Errorf("note = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseMeasureAccidentals(t *testing.T) {
	doc := mustParse(t, "cis'4 cis' c' c' | cis'1")

	got := []score.Accidental{}
	for _, m := range doc.Measures {
		for _, ev := range m {
			got = append(got, ev.Notes[0].Accidental)
		}
	}
	want := []score.Accidental{score.Sharp, score.NoAccidental, score.Natural, score.NoAccidental, score.Sharp}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("accidentals = %v, want %v", got, want)
	}
}

func TestParseImpliedMeasureAccidentals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want [][]score.Accidental
	}{
		{"sharp repeated after implied barline", "fis'4 c' c' c' fis'4", [][]score.Accidental{
			{score.Sharp, score.NoAccidental, score.NoAccidental, score.NoAccidental},
			{score.Sharp},
		}},
		{"natural repeated after implied barline", "\\time 2/4 fis'4 f' f'2", [][]score.Accidental{
			{score.Sharp, score.Natural},
			{score.NoAccidental},
		}},
		{"barline in title is not a barline", "\\title \"a|b\" fis'2 fis' fis'", [][]score.Accidental{
			{score.Sharp, score.NoAccidental},
			{score.Sharp},
		}},
		{"barline in comment is not a barline", "% a | b\nfis'1 fis'", [][]score.Accidental{
			{score.Sharp},
			{score.Sharp},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.src)
			var got [][]score.Accidental
			for _, m := range doc.Measures {
				var accs []score.Accidental
				for _, ev := range m {
					accs = append(accs, ev.Notes[0].Accidental)
				}
				got = append(got, accs)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("accidentals = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	doc := mustParse(t, "\\key 2# fis'4 f' cis'' c''")

	if doc.Key != (score.KeySignature{Count: 2}) {
		t.Errorf("Key = %v, want 2#", doc.Key)
	}
	events := doc.Events()
	if events[0].Kind != score.EventKey {
		t.Fatalf("first event = %v, want key", events[0])
	}
	got := []score.Accidental{}
	for _, ev := range events[1:] {
		got = append(got, ev.Notes[0].Accidental)
	}
	want := []score.Accidental{score.NoAccidental, score.Natural, score.NoAccidental, score.Natural}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("accidentals = %v, want %v", got, want)
	}
}

func TestParseClef(t *testing.T) {
	doc := mustParse(t, "\\clef bass c4 g, | \\clef treble e'")

	if doc.Clef != score.Bass {
		t.Errorf("Clef = %v, want bass", doc.Clef)
	}
	events := doc.Events()
	var idx []int
	for _, ev := range events {
		if ev.Kind == score.EventNote {
			idx = append(idx, ev.Notes[0].Index)
		}
	}
	if want := []int{3, 0, 0}; !reflect.DeepEqual(idx, want) {
		t.Errorf("indices = %v, want %v", idx, want)
	}
	if events[0].Kind != score.EventClef || events[3].Kind != score.EventClef {
		t.Errorf("clef events missing: %v", events)
	}
}

func TestParseChordAndRests(t *testing.T) {
	doc := mustParse(t, "<c' e' g'>2. r4 r8 % trailing comment\n r")

	events := doc.Events()
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4", len(events))
	}
	ch := events[0]
	if ch.Kind != score.EventChord || len(ch.Notes) != 3 {
		t.Fatalf("chord = %v", ch)
	}
	if ch.Duration != (score.Duration{Kind: score.Half, Dotted: true}) {
		t.Errorf("chord duration = %v, want 2.", ch.Duration)
	}
	if events[3].Kind != score.EventRest || events[3].Duration.Kind != score.Eighth {
		t.Errorf("last = %v, want eighth rest", events[3])
	}
}

func TestParseTitle(t *testing.T) {
	doc := mustParse(t, `\title "Menuet \"G\"" g'4`)
	if doc.Title != `Menuet "G"` {
		t.Errorf("Title = %q", doc.Title)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		line, col int
		msg       string
	}{
		{"bad letter", "c'4 x", 1, 5, "unexpected"},
		{"second line", "c'4\n  h", 2, 3, "unexpected"},
		{"bad duration", "c32", 1, 2, "unsupported duration"},
		{"unterminated chord", "<c e", 1, 1, "unterminated chord"},
		{"duration inside chord", "<c4 e>", 1, 3, "chord notes take no duration"},
		{"unknown command", "\\foo", 1, 1, "unknown command"},
		{"bad key", "\\key 9#", 1, 6, "key signature"},
		{"bad clef", "\\clef soprano", 1, 7, "unknown clef"},
		{"bad time", "\\time 3/5", 1, 7, "invalid time signature"},
		{"dot without duration", "c.", 1, 2, "dot without"},
		{"unterminated title", "\\title \"abc", 1, 8, "unterminated string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			var pe *errors.PositionError
			if !stderrors.As(err, &pe) {
				t.Fatalf("Parse(%q) error = %v, want PositionError", tt.src, err)
			}
			if pe.Line != tt.line || pe.Column != tt.col {
				t.Errorf("position = %d:%d, want %d:%d (%v)", pe.Line, pe.Column, tt.line, tt.col, pe)
			}
			if !strings.Contains(pe.Message, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", pe.Message, tt.msg)
			}
			if !errors.Is(err, errors.ErrCodeInvalidSyntax) {
				t.Errorf("code = %v, want INVALID_SYNTAX", errors.GetCode(err))
			}
		})
	}
}

func TestRead(t *testing.T) {
	doc, err := Read(strings.NewReader("c'4 d'"))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Events()) != 2 {
		t.Errorf("len(Events()) = %d, want 2", len(doc.Events()))
	}
}
