package document

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/errors"
)

func testScore() *score.Score {
	q := score.Duration{Kind: score.Quarter}
	return &score.Score{
		Title: "Scale",
		Time:  score.CommonTime,
		Measures: [][]score.Event{
			{
				score.ClefChange(score.Treble),
				score.Note(q, score.PitchedNote{Index: -2}),
				score.Note(q, score.PitchedNote{Index: -1, Accidental: score.Sharp}),
				score.Chord(q, score.PitchedNote{Index: 0}, score.PitchedNote{Index: 2}),
				score.Rest(q),
			},
			{score.Note(score.Duration{Kind: score.Whole}, score.PitchedNote{Index: 4})},
		},
	}
}

func laidOut(t *testing.T) *Document {
	t.Helper()
	d := New(testScore(), Source{Format: FormatText, Filename: "scale.ly", Text: "c d e"})
	if err := d.Relayout(staff.DefaultRenderer(), nil, nil); err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	return d
}

func draw(s *staff.Staff) []staff.Primitive {
	var c staff.Collector
	s.Draw(0, 0, &c)
	return c.Primitives
}

func TestNew(t *testing.T) {
	d := New(testScore(), Source{Format: FormatText})
	if err := errors.ValidateScoreID(d.ID); err != nil {
		t.Errorf("ID %q: %v", d.ID, err)
	}
	if d.Title != "Scale" {
		t.Errorf("Title = %q, want Scale", d.Title)
	}
	if d.Renderer != staff.DefaultRenderer() {
		t.Errorf("Renderer = %+v, want defaults", d.Renderer)
	}
	if d.Staff != nil {
		t.Error("Staff set before Relayout")
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestRelayout(t *testing.T) {
	d := laidOut(t)
	if d.Staff == nil || d.Staff.Measures() != 2 {
		t.Fatalf("Staff = %+v, want 2 measures", d.Staff)
	}
	if len(d.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none", d.Diagnostics)
	}

	bad := New(&score.Score{Measures: [][]score.Event{{
		score.Chord(score.Duration{Kind: score.Quarter}),
	}}}, Source{})
	if err := bad.Relayout(staff.DefaultRenderer(), nil, staff.UsePlaceholder(staff.DefaultRenderer())); err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if len(bad.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want 1", bad.Diagnostics)
	}
	if got := bad.Diagnostics[0].Code; got != errors.ErrCodeEmptyChord {
		t.Errorf("Code = %s, want %s", got, errors.ErrCodeEmptyChord)
	}

	if err := (&Document{}).Relayout(staff.DefaultRenderer(), nil, nil); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Relayout(no score) = %v, want INVALID_INPUT", err)
	}
	if err := d.Relayout(staff.Renderer{StaffWidth: -1}, nil, nil); !errors.Is(err, errors.ErrCodeDegenerateConfiguration) {
		t.Errorf("Relayout(negative width) = %v, want DEGENERATE_CONFIGURATION", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := laidOut(t)
	var buf bytes.Buffer
	if err := Write(d, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got.Score, d.Score) {
		t.Errorf("Score = %+v, want %+v", got.Score, d.Score)
	}
	if !reflect.DeepEqual(draw(got.Staff), draw(d.Staff)) {
		t.Error("Staff draws differently after round trip")
	}
	if got.Source != d.Source {
		t.Errorf("Source = %+v, want %+v", got.Source, d.Source)
	}
}

func TestBSONRoundTrip(t *testing.T) {
	d := laidOut(t)
	data, err := MarshalBSON(d)
	if err != nil {
		t.Fatalf("MarshalBSON: %v", err)
	}
	got, err := UnmarshalBSON(data)
	if err != nil {
		t.Fatalf("UnmarshalBSON: %v", err)
	}
	if got.ID != d.ID || got.Title != d.Title {
		t.Errorf("ID/Title = %s/%s, want %s/%s", got.ID, got.Title, d.ID, d.Title)
	}
	if got.Staff != nil {
		t.Error("BSON kept the staff layout")
	}
	if got.Renderer != d.Renderer {
		t.Errorf("Renderer = %+v, want %+v", got.Renderer, d.Renderer)
	}
	if err := got.Relayout(got.Renderer, nil, nil); err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if !reflect.DeepEqual(draw(got.Staff), draw(d.Staff)) {
		t.Error("relaid staff draws differently from original")
	}
}

func TestFiles(t *testing.T) {
	d := laidOut(t)
	dir := t.TempDir()
	for _, name := range []string{"doc.json", "doc.bson"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(d, path); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got.ID != d.ID {
				t.Errorf("ID = %s, want %s", got.ID, d.ID)
			}
		})
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.json")); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("ReadFile(missing) = %v, want INVALID_PATH", err)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	if _, err := Unmarshal([]byte("{")); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Unmarshal = %v, want INVALID_FORMAT", err)
	}
	if _, err := UnmarshalBSON([]byte{1, 2, 3}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("UnmarshalBSON = %v, want INVALID_FORMAT", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"bad id", func(d *Document) { d.ID = "x" }},
		{"no score", func(d *Document) { d.Score = nil }},
		{"bad title", func(d *Document) { d.Title = "a\x00b" }},
		{"bad renderer", func(d *Document) { d.Renderer.StaffWidth = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(testScore(), Source{})
			tt.mutate(d)
			if err := d.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
