package pipeline

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/matzehuels/engrave/pkg/cache"
	"github.com/matzehuels/engrave/pkg/core/render/staff"
	"github.com/matzehuels/engrave/pkg/core/score"
	"github.com/matzehuels/engrave/pkg/document"
	"github.com/matzehuels/engrave/pkg/errors"
	"github.com/matzehuels/engrave/pkg/source/midi"
)

const tune = `\title "Scale"
\clef treble
c'4 d' e' f' | g' a' b' c'' | c''1 |`

// broken has an empty chord in its second measure.
const broken = `c'4 d' e' f' | <>4 g' g' g' |`

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"document", false},
		{"dot", false},
		{"tree", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidatePolicy(t *testing.T) {
	tests := []struct {
		policy  string
		wantErr bool
	}{
		{"skip", false},
		{"placeholder", false},
		{"fail", false},
		{"ignore", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidatePolicy(tt.policy)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePolicy(%q) error = %v, wantErr %v", tt.policy, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidPolicy) {
			t.Errorf("ValidatePolicy(%q) code = %s, want INVALID_POLICY", tt.policy, errors.GetCode(err))
		}
	}
}

func TestDetectSourceFormat(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		want     string
	}{
		{"header", "", "MThd\x00\x00\x00\x06", SourceMIDI},
		{"extension", "song.MID", "", SourceMIDI},
		{"midi extension", "song.midi", "", SourceMIDI},
		{"text", "song.ly", "c'4", SourceText},
		{"no name", "", "c'4", SourceText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectSourceFormat(tt.filename, []byte(tt.data)); got != tt.want {
				t.Errorf("DetectSourceFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	opts := Options{Source: []byte(tune)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.SourceFormat != SourceText {
		t.Errorf("SourceFormat = %q, want text", opts.SourceFormat)
	}
	if opts.Renderer != staff.DefaultRenderer() {
		t.Errorf("Renderer = %+v, want defaults", opts.Renderer)
	}
	if opts.Policy != DefaultPolicy {
		t.Errorf("Policy = %q, want %q", opts.Policy, DefaultPolicy)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Scale != DefaultScale {
		t.Errorf("Scale = %v, want %v", opts.Scale, DefaultScale)
	}
	if opts.Logger == nil {
		t.Error("Logger not set")
	}

	partial := Options{Renderer: staff.Renderer{StaffWidth: 400}}
	partial.SetLayoutDefaults()
	if partial.Renderer.StaffWidth != 400 || partial.Renderer.NoteRadiusX == 0 {
		t.Errorf("Renderer = %+v, want width kept and other fields filled", partial.Renderer)
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"empty source", Options{}, errors.ErrCodeInvalidInput},
		{"bad source format", Options{Source: []byte("c"), SourceFormat: "abc"}, errors.ErrCodeInvalidInput},
		{"negative track", Options{Source: []byte("c"), Track: -1}, errors.ErrCodeInvalidInput},
		{"bad policy", Options{Source: []byte("c"), Policy: "drop"}, errors.ErrCodeInvalidPolicy},
		{"bad format", Options{Source: []byte("c"), Formats: []string{"gif"}}, errors.ErrCodeInvalidInput},
		{"negative width", Options{Source: []byte("c"), Renderer: staff.Renderer{StaffWidth: -1}}, errors.ErrCodeDegenerateConfiguration},
		{"negative scale", Options{Source: []byte("c"), Scale: -1}, errors.ErrCodeInvalidInput},
		{"huge scale", Options{Source: []byte("c"), Scale: 1e12}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestMIDIOptions(t *testing.T) {
	opts := Options{Track: 2, Grid: "8", Clef: "bass", Key: "2b"}
	mo, err := opts.MIDIOptions()
	if err != nil {
		t.Fatalf("MIDIOptions: %v", err)
	}
	if mo.Track != 1 {
		t.Errorf("Track = %d, want 1", mo.Track)
	}
	if mo.Grid != score.Eighth {
		t.Errorf("Grid = %v, want eighth", mo.Grid)
	}
	if mo.Clef == nil || *mo.Clef != score.Bass {
		t.Errorf("Clef = %v, want bass", mo.Clef)
	}
	if mo.Key == nil || *mo.Key != (score.KeySignature{Count: 2, Sign: score.Flats}) {
		t.Errorf("Key = %v, want 2b", mo.Key)
	}

	auto, err := (&Options{}).MIDIOptions()
	if err != nil || auto.Track != midi.AutoTrack || auto.Clef != nil || auto.Key != nil {
		t.Errorf("empty options = %+v, %v, want auto track only", auto, err)
	}

	if _, err := (&Options{Grid: "7"}).MIDIOptions(); err == nil {
		t.Error("grid 7 accepted")
	}
	if _, err := (&Options{Clef: "tenor-ish"}).MIDIOptions(); err == nil {
		t.Error("unknown clef accepted")
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), Options{Source: []byte("c'4 \\bogus")})
	var pe *errors.PositionError
	if !stderrors.As(err, &pe) {
		t.Fatalf("err = %v, want *PositionError", err)
	}
	if pe.Line != 1 || pe.Column != 5 {
		t.Errorf("position = %d:%d, want 1:5", pe.Line, pe.Column)
	}
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Parse(ctx, Options{Source: []byte(tune)}); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestGenerateLayoutPolicies(t *testing.T) {
	sc, err := Parse(context.Background(), Options{Source: []byte(broken)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	skip, err := GenerateLayout(context.Background(), sc, Options{Policy: PolicySkip})
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if len(skip.Diagnostics) != 1 {
		t.Fatalf("skip diagnostics = %v, want one", skip.Diagnostics)
	}
	d := skip.Diagnostics[0]
	if d.Measure != 1 || d.Item != 0 || d.Code != errors.ErrCodeEmptyChord {
		t.Errorf("diagnostic = %+v, want measure 1 item 0 EMPTY_CHORD", d)
	}
	if n := len(skip.Staff.Rows[0].Measures[1].Items); n != 3 {
		t.Errorf("skip items = %d, want 3", n)
	}

	ph, err := GenerateLayout(context.Background(), sc, Options{Policy: PolicyPlaceholder})
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	items := ph.Staff.Rows[0].Measures[1].Items
	if len(items) != 4 || items[0].Kind != staff.ItemPlaceholder {
		t.Errorf("placeholder items = %v, want placeholder first", items)
	}

	_, err = GenerateLayout(context.Background(), sc, Options{Policy: PolicyFail})
	if !errors.Is(err, errors.ErrCodeEmptyChord) {
		t.Errorf("fail: err = %v, want EMPTY_CHORD", err)
	}
	if err != nil && !strings.Contains(err.Error(), "measure 2, event 1") {
		t.Errorf("fail: err = %q, want the event position", err)
	}
}

func TestRenderFormats(t *testing.T) {
	ctx := context.Background()
	opts := Options{Source: []byte(tune), Formats: []string{FormatSVG, FormatPNG, FormatJSON, FormatDocument, FormatDOT}}
	res, err := NewRunner(nil, nil, nil).Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	checks := map[string]func([]byte) bool{
		FormatSVG:      func(b []byte) bool { return bytes.HasPrefix(b, []byte("<svg")) && bytes.Contains(b, []byte("<title>Scale</title>")) },
		FormatPNG:      func(b []byte) bool { return bytes.HasPrefix(b, []byte("\x89PNG")) },
		FormatJSON:     func(b []byte) bool { return bytes.Contains(b, []byte(`"primitives"`)) },
		FormatDocument: func(b []byte) bool { return bytes.Contains(b, []byte(res.Document.ID)) },
		FormatDOT:      func(b []byte) bool { return bytes.HasPrefix(b, []byte("digraph G {")) },
	}
	for format, ok := range checks {
		data, found := res.Artifacts[format]
		if !found {
			t.Errorf("missing %s artifact", format)
			continue
		}
		if !ok(data) {
			t.Errorf("%s artifact looks wrong: %.60q", format, data)
		}
	}

	doc, err := document.Unmarshal(res.Artifacts[FormatDocument])
	if err != nil {
		t.Fatalf("document artifact: %v", err)
	}
	if doc.Title != "Scale" || doc.Source.Format != SourceText || doc.Source.Text != tune {
		t.Errorf("document = %q %q, want title and text source", doc.Title, doc.Source.Format)
	}
}

func TestRenderWithoutLayout(t *testing.T) {
	_, err := Render(context.Background(), &document.Document{}, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestExecuteStats(t *testing.T) {
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{Source: []byte(broken)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	s := res.Stats
	if s.Events != 8 || s.Measures != 2 || s.Rows != 1 || s.Failed != 1 {
		t.Errorf("Stats = %+v, want 8 events, 2 measures, 1 row, 1 failed", s)
	}
	if res.CacheInfo != (CacheInfo{}) {
		t.Errorf("CacheInfo = %+v, want no hits with a null cache", res.CacheInfo)
	}
	if len(res.Document.Diagnostics) != 1 {
		t.Errorf("Diagnostics = %v, want one", res.Document.Diagnostics)
	}
}

func TestExecuteCaching(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	ctx := context.Background()
	opts := Options{Source: []byte(tune), Formats: []string{FormatSVG, FormatJSON}}

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo != (CacheInfo{}) {
		t.Errorf("first CacheInfo = %+v, want all misses", first.CacheInfo)
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.CacheInfo != (CacheInfo{ParseHit: true, LayoutHit: true, RenderHit: true}) {
		t.Errorf("second CacheInfo = %+v, want all hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached SVG differs")
	}

	// a different renderer reuses the score but not the layout
	wide := opts
	wide.Renderer = staff.Renderer{StaffWidth: 2000}
	third, err := runner.Execute(ctx, wide)
	if err != nil {
		t.Fatalf("third Execute: %v", err)
	}
	if !third.CacheInfo.ParseHit || third.CacheInfo.LayoutHit {
		t.Errorf("third CacheInfo = %+v, want parse hit and layout miss", third.CacheInfo)
	}

	refresh := opts
	refresh.Refresh = true
	fourth, err := runner.Execute(ctx, refresh)
	if err != nil {
		t.Fatalf("refresh Execute: %v", err)
	}
	if fourth.CacheInfo.ParseHit {
		t.Error("refresh read the cached score")
	}
}

func TestExecuteDocumentNotCached(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	opts := Options{Source: []byte(tune), Formats: []string{FormatDocument}}

	for i := range 2 {
		res, err := runner.Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
		if res.CacheInfo.RenderHit {
			t.Errorf("Execute %d: document artifact served from cache", i)
		}
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	opts := Options{Title: "x", Outlines: true, Background: "white", Scale: 3, Transparent: true}
	svg := opts.ArtifactKeyOpts(FormatSVG)
	if !svg.Outlines || svg.Background != "white" || svg.Scale != 0 {
		t.Errorf("svg key = %+v, want outlines and background only", svg)
	}
	png := opts.ArtifactKeyOpts(FormatPNG)
	if png.Outlines || png.Scale != 3 || !png.Transparent {
		t.Errorf("png key = %+v, want scale and transparency only", png)
	}
	if json := opts.ArtifactKeyOpts(FormatJSON); json.Title != "x" || json.Outlines {
		t.Errorf("json key = %+v, want title only", json)
	}
}
